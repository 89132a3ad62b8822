package extract

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/jhump/annoxml"
)

// SymbolKind is the kind of declaration a Symbol represents.
type SymbolKind int

const (
	// InvalidSymbol should not be used and indicates an incorrectly
	// uninitialized kind.
	InvalidSymbol SymbolKind = iota
	// NamedTypeSymbol is a top-level named type.
	NamedTypeSymbol
	// MethodSymbol is a function, a method, an interface method, or a
	// property accessor.
	MethodSymbol
	// ConstructorSymbol is a function named New... whose first result is a
	// type declared in the same package.
	ConstructorSymbol
	// PropertySymbol is an unexported struct field that has a getter and/or
	// setter method.
	PropertySymbol
	// FieldSymbol is a struct field or a package-level variable or constant.
	FieldSymbol
	// ParameterSymbol is a function or method parameter. Parameters are never
	// members on their own, so they have no identifier.
	ParameterSymbol
)

var symbolKindNames = map[SymbolKind]string{
	NamedTypeSymbol:   "named type",
	MethodSymbol:      "method",
	ConstructorSymbol: "constructor",
	PropertySymbol:    "property",
	FieldSymbol:       "field",
	ParameterSymbol:   "parameter",
}

func (k SymbolKind) String() string {
	if s, ok := symbolKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("?%d?", int(k))
}

// Symbol is a declaration that may carry annotations.
type Symbol struct {
	Kind SymbolKind
	// Name is the fully-qualified display name of the declaration, e.g.
	// "example.com/users.Store.Find(*string)".
	Name string
	// Obj is the declared object. For properties, it is the struct field.
	Obj types.Object

	scope    *fileScope
	comments []*ast.Comment
	// params is non-nil for method-like symbols whose parameters are
	// scanned for annotations.
	params *ast.FieldList
	// accessors are the getter and setter of a property.
	accessors []Symbol
}

// FormatIdentifier returns the documentation-style identifier for the given
// symbol: a kind prefix, a colon, and the symbol's name.
func FormatIdentifier(sym Symbol) (string, error) {
	var prefix string
	switch sym.Kind {
	case MethodSymbol, ConstructorSymbol:
		prefix = annoxml.MethodPrefix
	case PropertySymbol:
		prefix = annoxml.PropertyPrefix
	case NamedTypeSymbol:
		prefix = annoxml.TypePrefix
	case FieldSymbol:
		prefix = annoxml.FieldPrefix
	default:
		return "", fmt.Errorf("%w: the symbol kind %q of %s is not supported", ErrUnsupportedDeclarationKind, sym.Kind, sym.Name)
	}
	return prefix + ":" + sym.Name, nil
}

// expand returns the symbols a property declaration contributes: the
// property itself followed by its getter and setter, if present. Any other
// symbol expands to itself.
func expand(sym Symbol) []Symbol {
	if sym.Kind != PropertySymbol {
		return []Symbol{sym}
	}
	prop := sym
	prop.accessors = nil
	return append([]Symbol{prop}, sym.accessors...)
}

func qualifiedName(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func typeDisplayName(tn *types.TypeName) string {
	name := qualifiedName(tn)
	if named, ok := tn.Type().(*types.Named); ok && !tn.IsAlias() {
		name += typeParamNames(named.TypeParams())
	}
	return name
}

func typeParamNames(tparams *types.TypeParamList) string {
	if tparams.Len() == 0 {
		return ""
	}
	names := make([]string, tparams.Len())
	for i := range names {
		names[i] = tparams.At(i).Obj().Name()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// receiverTypeName returns the type that declares the given method, which
// is nil for plain functions.
func receiverTypeName(fn *types.Func) *types.TypeName {
	sig := fn.Type().(*types.Signature)
	if sig.Recv() == nil {
		return nil
	}
	t := sig.Recv().Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := types.Unalias(t).(*types.Named); ok {
		return named.Origin().Obj()
	}
	return nil
}

func funcDisplayName(fn *types.Func) string {
	sig := fn.Type().(*types.Signature)
	var name string
	if recv := receiverTypeName(fn); recv != nil {
		name = typeDisplayName(recv) + "." + fn.Name()
	} else {
		name = qualifiedName(fn) + typeParamNames(sig.TypeParams())
	}
	return name + signatureParams(sig.Params(), sig.Variadic())
}

func signatureParams(params *types.Tuple, variadic bool) string {
	parts := make([]string, params.Len())
	for i := range parts {
		t := params.At(i).Type()
		if variadic && i == params.Len()-1 {
			if sl, ok := t.(*types.Slice); ok {
				parts[i] = "..." + types.TypeString(sl.Elem(), nil)
				continue
			}
		}
		parts[i] = types.TypeString(t, nil)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func memberDisplayName(owner *types.TypeName, name string) string {
	return typeDisplayName(owner) + "." + name
}
