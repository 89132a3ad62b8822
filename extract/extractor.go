// Package extract finds recognized annotations in type-checked Go packages
// and converts them into member records for the external configuration file.
//
// Annotations are read from doc comments of types, functions, methods,
// struct fields, interface methods, and package-level variables and
// constants. Parameters are annotated with comments placed before the
// parameter name:
//
//    // @annotations.Pure
//    func Format(/* @annotations.NotNull */ format *string, args ...any) string
//
// A struct field whose owning type has a getter (Name() for a field named
// "name") and/or a setter (SetName(v)) is treated as a property. Annotations
// on the field belong to the property, and the accessors' own annotations
// belong to the accessors.
package extract

import (
	"fmt"
	"go/ast"
	"go/token"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoxml"
	"github.com/jhump/annoxml/annotations"
)

// Recognizer decides whether annotations declared in the package with the
// given import path are forwarded to the output.
type Recognizer func(pkgPath string) bool

// NamespaceRecognizer returns a Recognizer that accepts only the given
// package path.
func NamespaceRecognizer(pkgPath string) Recognizer {
	return func(p string) bool {
		return p == pkgPath
	}
}

// Extractor produces member records for the annotated declarations of a set
// of packages.
type Extractor struct {
	pkgs       []*packages.Package
	recognizer Recognizer
	logger     *slog.Logger
	baseDir    string
	excludes   []glob.Glob
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithRecognizer sets the predicate that recognizes annotation packages.
func WithRecognizer(r Recognizer) Option {
	return func(x *Extractor) error {
		x.recognizer = r
		return nil
	}
}

// WithNamespace recognizes annotations declared in the package with the
// given import path, instead of the annotations package of this module.
func WithNamespace(pkgPath string) Option {
	return WithRecognizer(NamespaceRecognizer(pkgPath))
}

// WithLogger sets the logger that reports skipped annotations and files.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) error {
		x.logger = logger
		return nil
	}
}

// WithBaseDir sets the directory that exclude patterns are relative to.
func WithBaseDir(dir string) Option {
	return func(x *Extractor) error {
		x.baseDir = dir
		return nil
	}
}

// WithExcludes skips files whose slash-separated path, relative to the base
// directory, matches one of the given glob patterns. A "*" does not match
// across directories; use "**" for that.
func WithExcludes(patterns ...string) Option {
	return func(x *Extractor) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return fmt.Errorf("invalid exclude pattern %q: %w", p, err)
			}
			x.excludes = append(x.excludes, g)
		}
		return nil
	}
}

// New creates an extractor for the given packages, which must have been
// loaded with syntax and type information. Packages are visited in order of
// their import paths.
func New(pkgs []*packages.Package, opts ...Option) (*Extractor, error) {
	x := &Extractor{
		recognizer: NamespaceRecognizer(annotations.PackagePath),
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	if x.recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if x.logger == nil {
		x.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, pkg := range pkgs {
		if pkg.Types == nil || pkg.TypesInfo == nil || pkg.Fset == nil {
			return nil, fmt.Errorf("package %s was loaded without type information", pkg.PkgPath)
		}
	}
	x.pkgs = append([]*packages.Package(nil), pkgs...)
	sort.SliceStable(x.pkgs, func(i, j int) bool {
		if x.pkgs[i].PkgPath != x.pkgs[j].PkgPath {
			return x.pkgs[i].PkgPath < x.pkgs[j].PkgPath
		}
		return x.pkgs[i].ID < x.pkgs[j].ID
	})
	return x, nil
}

// Members returns the sequence of member records, in declaration order. The
// sequence is evaluated lazily. If an error occurs, it is the last element
// of the sequence. Each call returns a new sequence that walks the packages
// from the start.
func (x *Extractor) Members() iter.Seq2[annoxml.Member, error] {
	return func(yield func(annoxml.Member, error) bool) {
		for _, pkg := range x.pkgs {
			w := newWalker(x, pkg, yield)
			for _, file := range x.files(pkg) {
				if !w.walkFile(file) {
					return
				}
			}
		}
	}
}

// Collect materializes the sequence returned by Members. If any error
// occurs, no members are returned.
func (x *Extractor) Collect() ([]annoxml.Member, error) {
	var members []annoxml.Member
	for m, err := range x.Members() {
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// files returns the syntax trees of the given package that are not
// excluded, sorted by file name.
func (x *Extractor) files(pkg *packages.Package) []*ast.File {
	files := make([]*ast.File, 0, len(pkg.Syntax))
	for _, f := range pkg.Syntax {
		name := fileName(pkg.Fset, f)
		if x.excluded(name) {
			x.logger.Debug("skipping excluded file", "file", name)
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return fileName(pkg.Fset, files[i]) < fileName(pkg.Fset, files[j])
	})
	return files
}

func (x *Extractor) excluded(filename string) bool {
	if len(x.excludes) == 0 {
		return false
	}
	rel := filename
	if x.baseDir != "" {
		if r, err := filepath.Rel(x.baseDir, filename); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, g := range x.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func fileName(fset *token.FileSet, f *ast.File) string {
	return fset.File(f.Pos()).Name()
}
