package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the name of the configuration file that is searched for in
// the project directory.
const FileName = ".annoxml.yaml"

// EnvPrefix is the prefix of environment variables that override
// configuration keys, e.g. ANNOXML_PROJECT_CONFIGURATION.
const EnvPrefix = "ANNOXML"

var keys = []string{
	"project.name",
	"project.directory",
	"project.configuration",
	"namespace",
	"patterns",
	"include_tests",
	"exclude",
	"validate",
	"registry",
	"log_level",
}

// Loader loads configuration for a project directory.
type Loader struct {
	// Dir is the directory that is searched for the configuration file and
	// the default project directory. Defaults to the working directory.
	Dir string
	// File is an explicit configuration file. If set, it must exist.
	File string
	// Flags override all other sources, but only flags that were set on the
	// command line. Flags are matched to keys by the Bindings.
	Flags *pflag.FlagSet
	// Bindings maps configuration keys to flag names.
	Bindings map[string]string
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line flags
// 2. Environment variables (ANNOXML_*)
// 3. Config file (.annoxml.yaml)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	dir := l.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	if l.File != "" {
		v.SetConfigFile(l.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., ANNOXML_PROJECT_NAME)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	setDefaults(v, dir)

	if l.Flags != nil {
		for key, name := range l.Bindings {
			flag := l.Flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("no flag named %q for key %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !filepath.IsAbs(cfg.Project.Directory) {
		cfg.Project.Directory = filepath.Join(dir, cfg.Project.Directory)
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Directory)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	defaults := Default()

	v.SetDefault("project.name", defaults.Project.Name)
	v.SetDefault("project.directory", dir)
	v.SetDefault("project.configuration", defaults.Project.Configuration)

	v.SetDefault("namespace", defaults.Namespace)
	v.SetDefault("patterns", defaults.Patterns)
	v.SetDefault("include_tests", defaults.IncludeTests)
	v.SetDefault("exclude", defaults.Exclude)
	v.SetDefault("validate", defaults.Validate)
	v.SetDefault("registry", defaults.Registry)
	v.SetDefault("log_level", defaults.LogLevel)
}

// LoadConfigFromDir loads configuration for the given project directory,
// without flags.
func LoadConfigFromDir(dir string) (*Config, error) {
	return (&Loader{Dir: dir}).Load()
}
