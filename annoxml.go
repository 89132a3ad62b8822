// Package annoxml forwards nullability, contract, and API-visibility
// annotations written in Go comments to an external XML file that IDE
// inspection engines can consume.
//
// Annotations are written in doc comments (and, for parameters, in comments
// immediately preceding the parameter name) and refer to types or
// constructor functions declared in the annotations package:
//
//    import _ "github.com/jhump/annoxml/annotations"
//
//    // Find looks up a user by name.
//    //
//    // @annotations.CanBeNull
//    // @annotations.ContractAnnotation("name:null => halt", false)
//    func Find(/* @annotations.NotNull */ name *string) *User {
//        ...
//    }
//
// Running the annoxml tool on the package produces a document of the
// following shape:
//
//    <assembly name="users">
//      <member name="M:example.com/users.Find(*string)">
//        <attribute ctor="github.com/jhump/annoxml/annotations.CanBeNull()"></attribute>
//        <attribute ctor="github.com/jhump/annoxml/annotations.ContractAnnotation(string, bool)">
//          <argument>name:null =&gt; halt</argument>
//          <argument>false</argument>
//        </attribute>
//        <parameter name="name">
//          <attribute ctor="github.com/jhump/annoxml/annotations.NotNull()"></attribute>
//        </parameter>
//      </member>
//    </assembly>
//
// The types in this package are the normalized records shared by the
// extractor (package extract), the serializer (package sidecar), and code
// generated by the registry module, which makes the records queryable at
// runtime via Lookup.
package annoxml

// Identifier prefixes of member names. A member name is the prefix, a colon,
// and the fully-qualified name of the declaration.
const (
	MethodPrefix   = "M"
	PropertyPrefix = "P"
	TypePrefix     = "T"
	FieldPrefix    = "F"
)

// Assembly is the root of an external configuration document: the program
// name and the members that carry recognized annotations.
type Assembly struct {
	Name    string
	Members []Member
}

// Member describes one annotated declaration. A member is only produced if
// it has at least one attribute or at least one annotated parameter.
type Member struct {
	// Name is the documentation-style identifier, e.g.
	// "M:example.com/users.Find(*string)".
	Name       string
	Attributes []Attribute
	// Parameters are only present for functions and methods. Parameters
	// without attributes are omitted.
	Parameters []Parameter

	// Package is the import path of the package that declares the member.
	// It is not part of the serialized document.
	Package string
}

// Parameter describes an annotated function or method parameter.
type Parameter struct {
	Name       string
	Attributes []Attribute
}

// Attribute is a single recognized annotation application.
type Attribute struct {
	// Constructor is the fully-qualified signature of the annotation's
	// constructor, e.g.
	// "github.com/jhump/annoxml/annotations.StringFormatMethod(string)".
	Constructor string
	// Arguments holds the textual rendering of each constructor argument,
	// in parameter order.
	Arguments []string
}

// HasAnnotations returns true if the member has at least one attribute or at
// least one parameter that has attributes.
func (m *Member) HasAnnotations() bool {
	if len(m.Attributes) > 0 {
		return true
	}
	for _, p := range m.Parameters {
		if len(p.Attributes) > 0 {
			return true
		}
	}
	return false
}
