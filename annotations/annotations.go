// Package annotations is the vocabulary recognized by the annoxml tool. Every
// type and constructor function in this package can be used as an annotation
// in Go comments, and only annotations that refer to this package are
// forwarded to the external configuration file (unless the tool is configured
// with a different namespace).
//
// Since annotations only appear in comments, packages that use them should
// import this package with a blank identifier:
//
//    import _ "github.com/jhump/annoxml/annotations"
//
// Annotations without arguments can omit the parentheses:
//
//    // @annotations.NotNull
//    func (s *Store) Name() string
//
// Struct annotations accept one argument per field, in field order:
//
//    // @annotations.ContractAnnotation("key:null => halt", false)
//    func (s *Store) Get(key *string) *Entry
package annotations

import (
	"fmt"
	"reflect"
	"strings"
)

// PackagePath is the import path of this package, which is the default
// namespace recognized by the annoxml tool.
var PackagePath = reflect.TypeOf(NotNull{}).PkgPath()

// NotNull indicates that the value of the annotated element can never be nil.
type NotNull struct{}

// CanBeNull indicates that the value of the annotated element could be nil
// sometimes, so checking for nil is required before use.
type CanBeNull struct{}

// ItemNotNull can be applied to slices, maps, and channels (or functions
// that return them) to indicate that the elements are never nil.
type ItemNotNull struct{}

// ItemCanBeNull can be applied to slices, maps, and channels (or functions
// that return them) to indicate that the elements may be nil.
type ItemCanBeNull struct{}

// NoEnumeration indicates that the annotated slice or iterator parameter is
// not consumed by the function.
type NoEnumeration struct{}

// InstantHandle indicates that a function-typed parameter is invoked before
// the function returns and is not retained.
type InstantHandle struct{}

// Pure indicates that a function has no observable side effects.
type Pure struct{}

// MustUseReturnValue indicates that the return value of the annotated
// function must be used.
type MustUseReturnValue struct {
	Justification string
}

// PublicAPI marks elements that are part of a public API and should not be
// reported as unused.
type PublicAPI struct {
	Comment string
}

// StringFormatMethod indicates that the annotated function builds a string
// from a format pattern and arguments. FormatParameterName names the
// parameter that holds the format string.
type StringFormatMethod struct {
	FormatParameterName string
}

// ContractAnnotation describes the dependency between inputs and outputs of a
// function, using the contract grammar "input => output; input => output".
// For example: "s:null => true; s:notnull => false".
type ContractAnnotation struct {
	Contract        string
	ForceFullStates bool
}

// Contract is a constructor for a ContractAnnotation that does not force full
// states.
func Contract(contract string) ContractAnnotation {
	return ContractAnnotation{Contract: contract}
}

// BaseTypeRequired can be applied to annotation types to indicate that
// elements annotated with them must implement or embed the given type.
//
//    // @annotations.BaseTypeRequired(io.Reader)
type BaseTypeRequired struct {
	BaseType reflect.Type
}

// UsedImplicitly indicates that the annotated element is used implicitly
// (e.g. via reflection) so must not be reported as unused.
type UsedImplicitly struct {
	UseKindFlags ImplicitUseKindFlags
	TargetFlags  ImplicitUseTargetFlags
}

// UsedImplicitlyAs is a constructor for UsedImplicitly that combines the
// given use kinds and applies them to the annotated element itself.
func UsedImplicitlyAs(kinds ...ImplicitUseKindFlags) UsedImplicitly {
	u := UsedImplicitly{TargetFlags: ImplicitUseTargetItself}
	for _, k := range kinds {
		u.UseKindFlags |= k
	}
	return u
}

// ImplicitUseKindFlags describes how an implicitly used element is used.
type ImplicitUseKindFlags int

const (
	// ImplicitUseKindAccess indicates that the element is read implicitly.
	ImplicitUseKindAccess ImplicitUseKindFlags = 1 << iota
	// ImplicitUseKindAssign indicates that the element is written
	// implicitly.
	ImplicitUseKindAssign
	// ImplicitUseKindInstantiatedWithFixedConstructor indicates that a type
	// is instantiated via a constructor with a fixed signature.
	ImplicitUseKindInstantiatedWithFixedConstructor
	// ImplicitUseKindInstantiatedNoFixedConstructor indicates that a type is
	// instantiated without a fixed constructor signature.
	ImplicitUseKindInstantiatedNoFixedConstructor

	// ImplicitUseKindDefault is the combination of access, assign, and
	// instantiation with a fixed constructor.
	ImplicitUseKindDefault = ImplicitUseKindAccess | ImplicitUseKindAssign | ImplicitUseKindInstantiatedWithFixedConstructor
)

var useKindNames = []string{"access", "assign", "fixed constructor", "no fixed constructor"}

func (k ImplicitUseKindFlags) String() string {
	return flagsString(int(k), useKindNames)
}

// ImplicitUseTargetFlags describes which elements are used implicitly.
type ImplicitUseTargetFlags int

const (
	// ImplicitUseTargetItself applies to the annotated element.
	ImplicitUseTargetItself ImplicitUseTargetFlags = 1 << iota
	// ImplicitUseTargetMembers applies to the members of the annotated
	// element.
	ImplicitUseTargetMembers

	// ImplicitUseTargetDefault is the same as ImplicitUseTargetItself.
	ImplicitUseTargetDefault = ImplicitUseTargetItself
	// ImplicitUseTargetWithMembers applies to the element and its members.
	ImplicitUseTargetWithMembers = ImplicitUseTargetItself | ImplicitUseTargetMembers
)

var useTargetNames = []string{"itself", "members"}

func (t ImplicitUseTargetFlags) String() string {
	return flagsString(int(t), useTargetNames)
}

func flagsString(v int, names []string) string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for i, n := range names {
		if v&(1<<i) != 0 {
			parts = append(parts, n)
			v &^= 1 << i
		}
	}
	if v != 0 {
		parts = append(parts, fmt.Sprintf("?%d?", v))
	}
	return strings.Join(parts, "|")
}
