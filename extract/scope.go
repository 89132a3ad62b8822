package extract

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/packages"
)

// fileScope is the context for resolving names that appear in the
// annotations of one file.
type fileScope struct {
	pkg  *packages.Package
	file *ast.File
}

func (s *fileScope) fset() *token.FileSet {
	return s.pkg.Fset
}

func (s *fileScope) position(p token.Pos) token.Position {
	return s.pkg.Fset.Position(p)
}

// importedPackage returns the package imported by the given import spec.
func (s *fileScope) importedPackage(imp *ast.ImportSpec) *types.Package {
	path, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return nil
	}
	for _, impPkg := range s.pkg.Types.Imports() {
		if impPkg.Path() == path {
			return impPkg
		}
	}
	return nil
}

// lookup resolves a possibly-qualified name. Qualifiers are matched against
// the file's imports: explicit names first, then default package names, and
// finally blank imports by package name, so that annotation packages that
// are only imported for their comments can still be referenced.
// Unqualified names are resolved in the package scope, then dot imports,
// then the universe.
func (s *fileScope) lookup(qualifier, name string) types.Object {
	if qualifier == "" {
		if obj := s.pkg.Types.Scope().Lookup(name); obj != nil {
			return obj
		}
		for _, imp := range s.file.Imports {
			if imp.Name != nil && imp.Name.Name == "." {
				if impPkg := s.importedPackage(imp); impPkg != nil {
					if obj := exported(impPkg.Scope().Lookup(name)); obj != nil {
						return obj
					}
				}
			}
		}
		return types.Universe.Lookup(name)
	}

	var byDefaultName, byBlank *types.Package
	for _, imp := range s.file.Imports {
		impPkg := s.importedPackage(imp)
		if impPkg == nil {
			continue
		}
		switch {
		case imp.Name == nil:
			if impPkg.Name() == qualifier && byDefaultName == nil {
				byDefaultName = impPkg
			}
		case imp.Name.Name == qualifier:
			return exported(impPkg.Scope().Lookup(name))
		case imp.Name.Name == "_":
			if impPkg.Name() == qualifier && byBlank == nil {
				byBlank = impPkg
			}
		}
	}
	if byDefaultName != nil {
		return exported(byDefaultName.Scope().Lookup(name))
	}
	if byBlank != nil {
		return exported(byBlank.Scope().Lookup(name))
	}
	return nil
}

func exported(obj types.Object) types.Object {
	if obj == nil || !obj.Exported() {
		return nil
	}
	return obj
}
