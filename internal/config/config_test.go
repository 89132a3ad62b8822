package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoxml/annotations"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Debug", cfg.Project.Configuration)
	assert.Equal(t, annotations.PackagePath, cfg.Namespace)
	assert.Equal(t, []string{"./..."}, cfg.Patterns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Validate)
	assert.False(t, cfg.Registry)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Project.Directory)
	assert.Equal(t, filepath.Base(abs), cfg.Project.Name)
	assert.Equal(t, "Debug", cfg.Project.Configuration)
	assert.Equal(t, annotations.PackagePath, cfg.Namespace)
	assert.Equal(t, []string{"./..."}, cfg.Patterns)
	assert.Empty(t, cfg.Exclude)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
project:
  name: users
  directory: src
  configuration: Release
namespace: example.com/vocab
patterns:
  - ./pkg/...
include_tests: true
exclude:
  - "**/zz_*.go"
validate: true
registry: true
log_level: debug
`)
	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, "users", cfg.Project.Name)
	assert.Equal(t, filepath.Join(abs, "src"), cfg.Project.Directory)
	assert.Equal(t, "Release", cfg.Project.Configuration)
	assert.Equal(t, "example.com/vocab", cfg.Namespace)
	assert.Equal(t, []string{"./pkg/..."}, cfg.Patterns)
	assert.True(t, cfg.IncludeTests)
	assert.Equal(t, []string{"**/zz_*.go"}, cfg.Exclude)
	assert.True(t, cfg.Validate)
	assert.True(t, cfg.Registry)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_MergesConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "validate: true\n")
	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Validate)
	assert.Equal(t, "Debug", cfg.Project.Configuration)
	assert.Equal(t, annotations.PackagePath, cfg.Namespace)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("project:\n  configuration: Release\n"), 0o644))

	cfg, err := (&Loader{Dir: dir, File: file}).Load()
	require.NoError(t, err)
	assert.Equal(t, "Release", cfg.Project.Configuration)

	_, err = (&Loader{Dir: dir, File: filepath.Join(dir, "missing.yaml")}).Load()
	require.Error(t, err)
}

func TestLoad_EnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project:\n  configuration: Release\nnamespace: example.com/vocab\n")
	t.Setenv("ANNOXML_PROJECT_CONFIGURATION", "Staging")
	t.Setenv("ANNOXML_EXCLUDE", "a/*.go,b/*.go")
	t.Setenv("ANNOXML_REGISTRY", "true")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "Staging", cfg.Project.Configuration)
	assert.Equal(t, "example.com/vocab", cfg.Namespace)
	assert.Equal(t, []string{"a/*.go", "b/*.go"}, cfg.Exclude)
	assert.True(t, cfg.Registry)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project:\n  name: fromfile\n")
	t.Setenv("ANNOXML_PROJECT_CONFIGURATION", "Staging")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("configuration", "Debug", "")
	flags.String("name", "", "")
	flags.Bool("validate", false, "")
	require.NoError(t, flags.Parse([]string{"--configuration", "Release"}))

	l := &Loader{
		Dir:   dir,
		Flags: flags,
		Bindings: map[string]string{
			"project.configuration": "configuration",
			"project.name":          "name",
			"validate":              "validate",
		},
	}
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "Release", cfg.Project.Configuration)
	// unset flags do not override the file
	assert.Equal(t, "fromfile", cfg.Project.Name)
	assert.False(t, cfg.Validate)
}

func TestLoad_DirectoryFlagOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANNOXML_PROJECT_DIRECTORY", filepath.Join(t.TempDir(), "other"))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	require.NoError(t, flags.Parse([]string{"--dir", dir}))

	l := &Loader{
		Dir:      dir,
		Flags:    flags,
		Bindings: map[string]string{"project.directory": "dir"},
	}
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Project.Directory)
	assert.Equal(t, filepath.Base(dir), cfg.Project.Name)
}

func TestLoad_UnknownFlagBinding(t *testing.T) {
	l := &Loader{
		Dir:      t.TempDir(),
		Flags:    pflag.NewFlagSet("test", pflag.ContinueOnError),
		Bindings: map[string]string{"validate": "validate"},
	}
	_, err := l.Load()
	require.ErrorContains(t, err, `no flag named "validate"`)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project: [unclosed\n")
	_, err := LoadConfigFromDir(dir)
	require.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "namespace: \"\"\n")
	_, err := LoadConfigFromDir(dir)
	require.ErrorIs(t, err, ErrEmptyNamespace)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		is     []error
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:   "empty configuration",
			modify: func(c *Config) { c.Project.Configuration = " " },
			is:     []error{ErrEmptyConfiguration},
		},
		{
			name:   "empty namespace",
			modify: func(c *Config) { c.Namespace = "" },
			is:     []error{ErrEmptyNamespace},
		},
		{
			name:   "bad glob",
			modify: func(c *Config) { c.Exclude = []string{"ok/*.go", "[unclosed"} },
			is:     []error{ErrInvalidExclude},
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.LogLevel = "loud" },
			is:     []error{ErrInvalidLogLevel},
		},
		{
			name: "multiple",
			modify: func(c *Config) {
				c.Namespace = ""
				c.LogLevel = "loud"
			},
			is: []error{ErrEmptyNamespace, ErrInvalidLogLevel},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			err := Validate(cfg)
			if len(tc.is) == 0 {
				require.NoError(t, err)
				return
			}
			for _, target := range tc.is {
				assert.ErrorIs(t, err, target)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for name, level := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: name}
		assert.Equal(t, level, cfg.SlogLevel(), name)
	}
}
