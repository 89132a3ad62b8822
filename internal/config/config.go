// Package config loads the settings of the annoxml command from defaults, a
// .annoxml.yaml file, ANNOXML_* environment variables, and command-line
// flags.
package config

import (
	"log/slog"
	"strings"

	"github.com/jhump/annoxml/annotations"
)

// Config represents the complete annoxml configuration.
type Config struct {
	Project ProjectConfig `yaml:"project" mapstructure:"project"`
	// Namespace is the import path of the package whose declarations are
	// recognized as annotations.
	Namespace    string   `yaml:"namespace" mapstructure:"namespace"`
	Patterns     []string `yaml:"patterns" mapstructure:"patterns"`           // package patterns, e.g. "./..."
	IncludeTests bool     `yaml:"include_tests" mapstructure:"include_tests"` // also extract from _test.go files
	Exclude      []string `yaml:"exclude" mapstructure:"exclude"`             // glob patterns of files to skip
	Validate     bool     `yaml:"validate" mapstructure:"validate"`           // check output against the schema
	Registry     bool     `yaml:"registry" mapstructure:"registry"`           // generate runtime registrations
	LogLevel     string   `yaml:"log_level" mapstructure:"log_level"`
}

// ProjectConfig describes the project being processed.
type ProjectConfig struct {
	// Name names the output file. Defaults to the base name of Directory.
	Name          string `yaml:"name" mapstructure:"name"`
	Directory     string `yaml:"directory" mapstructure:"directory"`
	Configuration string `yaml:"configuration" mapstructure:"configuration"` // e.g. "Debug" or "Release"
}

// Default returns a configuration with the default values. The project
// directory and name are left empty; the loader fills them in.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Configuration: "Debug",
		},
		Namespace: annotations.PackagePath,
		Patterns:  []string{"./..."},
		Exclude:   []string{},
		LogLevel:  "info",
	}
}

// SlogLevel returns the level named by LogLevel. Unknown names map to
// slog.LevelInfo.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
