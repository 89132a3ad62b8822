// Command annoxml extracts annotations from Go packages and writes them to
// the project's external configuration file.
//
//	annoxml extract [flags] [packages]
//	annoxml validate FILE...
//
// Settings are read from .annoxml.yaml in the project directory and from
// ANNOXML_* environment variables; flags take precedence over both.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhump/annoxml/extract"
	"github.com/jhump/annoxml/internal/config"
	"github.com/jhump/annoxml/processor"
	"github.com/jhump/annoxml/sidecar"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagBindings maps configuration keys to the flags of the extract command.
var flagBindings = map[string]string{
	"project.name":          "name",
	"project.directory":     "dir",
	"project.configuration": "configuration",
	"namespace":             "namespace",
	"include_tests":         "tests",
	"exclude":               "exclude",
	"validate":              "validate",
	"registry":              "registry",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "annoxml",
		Short: "Forward Go comment annotations to an external configuration file",
		Long: `annoxml reads annotations such as @annotations.NotNull from the comments
of Go declarations and writes them to
<project>/bin/<configuration>/<name>.ExternalConfiguration.xml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newExtractCmd(stderr), newValidateCmd(stdout))
	return root
}

func newExtractCmd(stderr io.Writer) *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "extract [packages]",
		Short: "Extract annotations and write the external configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := &config.Loader{
				File:     cfgFile,
				Flags:    cmd.Flags(),
				Bindings: flagBindings,
			}
			if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
				// absolute, so that project.directory is not joined to
				// loader.Dir again
				abs, err := filepath.Abs(dir)
				if err != nil {
					return err
				}
				if err := cmd.Flags().Set("dir", abs); err != nil {
					return err
				}
				loader.Dir = abs
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Patterns = args
			}
			level := cfg.SlogLevel()
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return run(cmd.Context(), cfg, logger)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is <dir>/"+config.FileName+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("dir", "", "project directory (default is the working directory)")
	flags.String("name", "", "program name used to name the output file (default is the base name of the project directory)")
	flags.String("configuration", "Debug", "build configuration label")
	flags.String("namespace", "", "import path of the package that declares recognized annotations")
	flags.Bool("tests", false, "also extract annotations from test files")
	flags.StringSlice("exclude", nil, "glob patterns of files to skip, relative to the project directory")
	flags.Bool("validate", false, "validate the written file against the document schema")
	flags.Bool("registry", false, "generate Go files that register annotations at runtime")
	return cmd
}

// modules returns the modules to run for the given configuration. Modules
// registered with processor.RegisterModule, typically from init functions of
// packages linked into a custom build of this command, run after the
// built-in ones.
func modules(cfg *config.Config) []processor.Module {
	opts := []extract.Option{
		extract.WithNamespace(cfg.Namespace),
		extract.WithExcludes(cfg.Exclude...),
	}
	mods := []processor.Module{
		&processor.ExternalConfigurationModule{Options: opts, Validate: cfg.Validate},
	}
	if cfg.Registry {
		mods = append(mods, &processor.RegistryModule{Options: opts})
	}
	return append(mods, processor.AllRegisteredModules()...)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pc := processor.Config{
		Patterns:     cfg.Patterns,
		IncludeTests: cfg.IncludeTests,
		Project: processor.ProjectContext{
			Name:             cfg.Project.Name,
			ProjectDirectory: cfg.Project.Directory,
			Configuration:    cfg.Project.Configuration,
		},
		Modules: modules(cfg),
		Logger:  logger,
	}
	return pc.Execute(ctx)
}

func newValidateCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check external configuration files against the document schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := sidecar.ValidateFile(path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(stdout, "%s: ok\n", path)
			}
			return nil
		},
	}
}
