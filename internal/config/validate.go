package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyConfiguration indicates a missing build configuration label.
	ErrEmptyConfiguration = errors.New("empty project configuration")

	// ErrEmptyNamespace indicates a missing annotation namespace.
	ErrEmptyNamespace = errors.New("empty namespace")

	// ErrInvalidExclude indicates an exclude pattern that is not a valid glob.
	ErrInvalidExclude = errors.New("invalid exclude pattern")

	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Project.Configuration) == "" {
		errs = append(errs, fmt.Errorf("%w: project.configuration is required", ErrEmptyConfiguration))
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		errs = append(errs, fmt.Errorf("%w: namespace is required", ErrEmptyNamespace))
	}
	for _, pattern := range cfg.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidExclude, pattern, err))
		}
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be one of debug, info, warn, error; got '%s'", ErrInvalidLogLevel, cfg.LogLevel))
	}

	return errors.Join(errs...)
}
