package sidecar

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
)

const schemaFile = "externalconfiguration.xsd"

//go:embed externalconfiguration.xsd
var schemaFS embed.FS

var schema = sync.OnceValues(func() (*xsd.Schema, error) {
	return xsd.Load(schemaFS, schemaFile)
})

// Validate checks that the document read from r conforms to the schema of
// external configuration files.
func Validate(r io.Reader) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", schemaFile, err)
	}
	return validationError(s.Validate(r))
}

// ValidateFile checks that the document at the given path conforms to the
// schema of external configuration files.
func ValidateFile(path string) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", schemaFile, err)
	}
	if err := validationError(s.ValidateFile(path)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	violations, ok := xsderrors.AsValidations(err)
	if !ok {
		return err
	}
	msgs := make([]string, len(violations))
	for i := range violations {
		msgs[i] = violations[i].Error()
	}
	return fmt.Errorf("document is not valid: %s", strings.Join(msgs, "; "))
}
