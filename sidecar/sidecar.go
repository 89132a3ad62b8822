// Package sidecar writes the external configuration file: an XML document
// that lists annotated members and their annotations, keyed by
// documentation-style identifiers.
//
// The document looks like this:
//
//    <?xml version="1.0" encoding="UTF-8"?>
//    <assembly name="users">
//      <member name="M:example.com/users.Store.Find(*string)">
//        <attribute ctor="github.com/jhump/annoxml/annotations.Pure()"></attribute>
//        <parameter name="id">
//          <attribute ctor="github.com/jhump/annoxml/annotations.NotNull()"></attribute>
//        </parameter>
//      </member>
//    </assembly>
package sidecar

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jhump/annoxml"
)

// FileSuffix is appended to the project name to form the name of the output
// file.
const FileSuffix = ".ExternalConfiguration.xml"

type assemblyElement struct {
	XMLName xml.Name        `xml:"assembly"`
	Name    string          `xml:"name,attr"`
	Members []memberElement `xml:"member"`
}

type memberElement struct {
	Name       string             `xml:"name,attr"`
	Attributes []attributeElement `xml:"attribute"`
	Parameters []parameterElement `xml:"parameter"`
}

type parameterElement struct {
	Name       string             `xml:"name,attr"`
	Attributes []attributeElement `xml:"attribute"`
}

type attributeElement struct {
	Ctor      string   `xml:"ctor,attr"`
	Arguments []string `xml:"argument"`
}

func newDocument(a annoxml.Assembly) assemblyElement {
	doc := assemblyElement{Name: a.Name}
	for _, m := range a.Members {
		me := memberElement{
			Name:       m.Name,
			Attributes: attributeElements(m.Attributes),
		}
		for _, p := range m.Parameters {
			me.Parameters = append(me.Parameters, parameterElement{
				Name:       p.Name,
				Attributes: attributeElements(p.Attributes),
			})
		}
		doc.Members = append(doc.Members, me)
	}
	return doc
}

func attributeElements(attrs []annoxml.Attribute) []attributeElement {
	if len(attrs) == 0 {
		return nil
	}
	elems := make([]attributeElement, len(attrs))
	for i, a := range attrs {
		elems[i] = attributeElement{Ctor: a.Constructor, Arguments: a.Arguments}
	}
	return elems
}

// OutputPath returns the location of the external configuration file for
// the given project: <projectDir>/bin/<configuration>/<projectName>.ExternalConfiguration.xml.
func OutputPath(projectDir, configuration, projectName string) string {
	return filepath.Join(projectDir, "bin", configuration, projectName+FileSuffix)
}

// Write writes the document for the given assembly to w.
func Write(w io.Writer, a annoxml.Assembly) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(newDocument(a)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", a.Name, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the document for the given assembly to the given path,
// replacing any existing file. The directory is created if it does not
// exist.
func WriteFile(path string, a annoxml.Assembly) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
	}()
	return Write(f, a)
}
