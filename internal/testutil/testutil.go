// Package testutil builds type-checked packages from in-memory sources, so
// that tests can exercise extraction without invoking the go command.
package testutil

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoxml/annotations"
)

// SourceRoot is the directory that fixture files are placed in. A fixture
// file named "a.go" in package "example.com/p" has the path
// "/src/example.com/p/a.go".
const SourceRoot = "/src"

// Package is the source of a fixture package.
type Package struct {
	Path string
	// Files maps file names (without directory) to their contents.
	Files map[string]string
}

// Load parses and type-checks the given packages, which may import each
// other and packages of the standard library. It returns the loaded
// packages in the order given.
func Load(t testing.TB, pkgs ...Package) []*packages.Package {
	t.Helper()
	l := &loader{
		fset:     token.NewFileSet(),
		sources:  map[string]Package{},
		loaded:   map[string]*packages.Package{},
		fallback: importer.ForCompiler(token.NewFileSet(), "source", nil),
	}
	for _, p := range pkgs {
		l.sources[p.Path] = p
	}
	result := make([]*packages.Package, len(pkgs))
	for i, p := range pkgs {
		pkg, err := l.load(p.Path, nil)
		require.NoError(t, err)
		result[i] = pkg
	}
	return result
}

// WithAnnotations returns the given packages plus a fixture copy of the
// annotations package.
func WithAnnotations(pkgs ...Package) []Package {
	return append([]Package{AnnotationsPackage()}, pkgs...)
}

// AnnotationsPackage returns a fixture with the same import path and the
// same annotation declarations as the annotations package of this module,
// except that BaseTypeRequired.BaseType is declared as any so that the
// fixture does not import reflect.
func AnnotationsPackage() Package {
	return Package{
		Path:  annotations.PackagePath,
		Files: map[string]string{"annotations.go": annotationsSource},
	}
}

type loader struct {
	fset     *token.FileSet
	sources  map[string]Package
	loaded   map[string]*packages.Package
	fallback types.Importer
}

func (l *loader) Import(path string) (*types.Package, error) {
	if _, ok := l.sources[path]; ok {
		pkg, err := l.load(path, nil)
		if err != nil {
			return nil, err
		}
		return pkg.Types, nil
	}
	return l.fallback.Import(path)
}

func (l *loader) load(pkgPath string, importing []string) (*packages.Package, error) {
	if pkg, ok := l.loaded[pkgPath]; ok {
		return pkg, nil
	}
	for _, p := range importing {
		if p == pkgPath {
			return nil, fmt.Errorf("import cycle: %s -> %s", strings.Join(importing, " -> "), pkgPath)
		}
	}
	src := l.sources[pkgPath]

	names := make([]string, 0, len(src.Files))
	for name := range src.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	pkg := &packages.Package{
		ID:      pkgPath,
		PkgPath: pkgPath,
		Fset:    l.fset,
		Imports: map[string]*packages.Package{},
	}
	for _, name := range names {
		filename := path.Join(SourceRoot, pkgPath, name)
		f, err := parser.ParseFile(l.fset, filename, src.Files[name], parser.ParseComments)
		if err != nil {
			return nil, err
		}
		pkg.Syntax = append(pkg.Syntax, f)
		pkg.GoFiles = append(pkg.GoFiles, filename)
		pkg.CompiledGoFiles = append(pkg.CompiledGoFiles, filename)
		for _, imp := range f.Imports {
			impPath := strings.Trim(imp.Path.Value, `"`)
			if _, ok := l.sources[impPath]; ok {
				dep, err := l.load(impPath, append(importing, pkgPath))
				if err != nil {
					return nil, err
				}
				pkg.Imports[impPath] = dep
			}
		}
	}

	info := &types.Info{
		Types:      map[ast.Expr]types.TypeAndValue{},
		Defs:       map[*ast.Ident]types.Object{},
		Uses:       map[*ast.Ident]types.Object{},
		Implicits:  map[ast.Node]types.Object{},
		Selections: map[*ast.SelectorExpr]*types.Selection{},
		Scopes:     map[ast.Node]*types.Scope{},
	}
	conf := types.Config{Importer: l}
	tpkg, err := conf.Check(pkgPath, l.fset, pkg.Syntax, info)
	if err != nil {
		return nil, err
	}
	pkg.Name = tpkg.Name()
	pkg.Types = tpkg
	pkg.TypesInfo = info
	l.loaded[pkgPath] = pkg
	return pkg, nil
}

const annotationsSource = `package annotations

type NotNull struct{}

type CanBeNull struct{}

type ItemNotNull struct{}

type ItemCanBeNull struct{}

type NoEnumeration struct{}

type InstantHandle struct{}

type Pure struct{}

type MustUseReturnValue struct {
	Justification string
}

type PublicAPI struct {
	Comment string
}

type StringFormatMethod struct {
	FormatParameterName string
}

type ContractAnnotation struct {
	Contract        string
	ForceFullStates bool
}

func Contract(contract string) ContractAnnotation {
	return ContractAnnotation{Contract: contract}
}

type BaseTypeRequired struct {
	BaseType any
}

type UsedImplicitly struct {
	UseKindFlags ImplicitUseKindFlags
	TargetFlags  ImplicitUseTargetFlags
}

func UsedImplicitlyAs(kinds ...ImplicitUseKindFlags) UsedImplicitly {
	u := UsedImplicitly{TargetFlags: ImplicitUseTargetItself}
	for _, k := range kinds {
		u.UseKindFlags |= k
	}
	return u
}

type ImplicitUseKindFlags int

const (
	ImplicitUseKindAccess ImplicitUseKindFlags = 1 << iota
	ImplicitUseKindAssign
	ImplicitUseKindInstantiatedWithFixedConstructor
	ImplicitUseKindInstantiatedNoFixedConstructor

	ImplicitUseKindDefault = ImplicitUseKindAccess | ImplicitUseKindAssign | ImplicitUseKindInstantiatedWithFixedConstructor
)

type ImplicitUseTargetFlags int

const (
	ImplicitUseTargetItself ImplicitUseTargetFlags = 1 << iota
	ImplicitUseTargetMembers

	ImplicitUseTargetDefault     = ImplicitUseTargetItself
	ImplicitUseTargetWithMembers = ImplicitUseTargetItself | ImplicitUseTargetMembers
)
`
