package processor

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadMode is the information that Config.Load requests for every package.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedSyntax |
	packages.NeedModule

// OutputFactory is a function that creates a writer to an output for the
// given location. Output factories typically use os.OpenFile to create files
// but this function allows the behavior to be customized.
type OutputFactory func(path string) (io.WriteCloser, error)

// DefaultOutputFactory returns the OutputFactory used when a Config does not
// specify one. It uses os.OpenFile to open the file for writing (creating the
// file if necessary, truncating it if it already exists).
func DefaultOutputFactory() OutputFactory {
	return func(path string) (io.WriteCloser, error) {
		return os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

// Module is a compile module. The host invokes BeforeCompile for every
// module once the program has been loaded and type-checked, and then
// AfterCompile for every module.
type Module interface {
	BeforeCompile(ctx *BeforeCompileContext) error
	AfterCompile(ctx *AfterCompileContext) error
}

// ProjectContext describes the project being compiled.
type ProjectContext struct {
	// Name is the name of the program, used to name output files.
	Name string
	// ProjectDirectory is the root directory of the project's sources.
	ProjectDirectory string
	// Configuration is the build configuration label, such as "Debug".
	Configuration string
}

// Program is a loaded and type-checked set of packages.
type Program struct {
	// Packages are the packages that matched the configured patterns, sorted
	// by import path. Each has syntax trees and type information.
	Packages []*packages.Package
	// Fset is used to resolve positions in the packages' syntax trees.
	Fset *token.FileSet
}

// NewProgram returns a program for the given packages, which must share a
// file set.
func NewProgram(pkgs []*packages.Package) *Program {
	prg := &Program{Packages: selectPackages(pkgs)}
	if len(prg.Packages) > 0 {
		prg.Fset = prg.Packages[0].Fset
	} else {
		prg.Fset = token.NewFileSet()
	}
	return prg
}

// Package returns the package with the given import path, or nil.
func (p *Program) Package(path string) *packages.Package {
	for _, pkg := range p.Packages {
		if pkg.PkgPath == path {
			return pkg
		}
	}
	return nil
}

type compileContext struct {
	// Context is canceled when the run is canceled.
	Context context.Context
	Program *Program
	Project ProjectContext
	Logger  *slog.Logger
	// Output creates output files, other than the external configuration
	// file.
	Output OutputFactory
}

// BeforeCompileContext is the environment of Module.BeforeCompile.
type BeforeCompileContext struct {
	compileContext
}

// AfterCompileContext is the environment of Module.AfterCompile.
type AfterCompileContext struct {
	compileContext
}

// Config represents the configuration for running one or more modules.
// Callers should configure all of the exported fields and then call the
// Execute method to actually invoke the modules.
type Config struct {
	// Patterns are the package patterns to load, such as "./...".
	Patterns []string
	// Dir is the directory in which to run the build tool. If empty, the
	// project directory is used.
	Dir          string
	IncludeTests bool
	Project      ProjectContext
	Modules      []Module
	Logger       *slog.Logger
	// OutputFactory defaults to DefaultOutputFactory.
	OutputFactory OutputFactory
}

// Execute loads the configured packages and then invokes the configured
// modules.
func (cfg *Config) Execute(ctx context.Context) error {
	prg, err := cfg.Load(ctx)
	if err != nil {
		return err
	}
	return cfg.Run(ctx, prg)
}

// Load loads, parses and type-checks the configured packages. It fails if
// any package, or any of their dependencies, has errors.
func (cfg *Config) Load(ctx context.Context) (*Program, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = cfg.Project.ProjectDirectory
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	conf := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     dir,
		Tests:   cfg.IncludeTests,
	}
	logger := cfg.logger()
	logger.Debug("loading packages", "dir", dir, "patterns", patterns, "tests", cfg.IncludeTests)
	pkgs, err := packages.Load(conf, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if err := loadErrors(pkgs); err != nil {
		return nil, err
	}
	prg := NewProgram(pkgs)
	logger.Debug("loaded packages", "count", len(prg.Packages))
	return prg, nil
}

// Run invokes the configured modules for the given program: BeforeCompile for
// every module, in order, and then AfterCompile for every module.
func (cfg *Config) Run(ctx context.Context, prg *Program) error {
	output := cfg.OutputFactory
	if output == nil {
		output = DefaultOutputFactory()
	}
	cc := compileContext{
		Context: ctx,
		Program: prg,
		Project: cfg.Project,
		Logger:  cfg.logger(),
		Output:  output,
	}
	before := &BeforeCompileContext{compileContext: cc}
	for _, m := range cfg.Modules {
		if err := m.BeforeCompile(before); err != nil {
			return err
		}
	}
	after := &AfterCompileContext{compileContext: cc}
	for _, m := range cfg.Modules {
		if err := m.AfterCompile(after); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg.Logger
}

func loadErrors(pkgs []*packages.Package) error {
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})
	return errors.Join(errs...)
}

// selectPackages picks one variant of every package and sorts them by import
// path. When tests are loaded, a package is returned both with and without
// its test files; the variant that includes them is kept. Generated test
// mains are dropped.
func selectPackages(pkgs []*packages.Package) []*packages.Package {
	byPath := map[string]*packages.Package{}
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.ID, ".test") && pkg.Name == "main" {
			continue
		}
		existing, ok := byPath[pkg.PkgPath]
		if !ok || (isTestVariant(pkg) && !isTestVariant(existing)) {
			byPath[pkg.PkgPath] = pkg
		}
	}
	selected := make([]*packages.Package, 0, len(byPath))
	for _, pkg := range byPath {
		selected = append(selected, pkg)
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].PkgPath < selected[j].PkgPath
	})
	return selected
}

func isTestVariant(pkg *packages.Package) bool {
	return strings.Contains(pkg.ID, " [")
}
