package extract

import (
	"errors"
	"fmt"
	"go/token"
)

var (
	// ErrUnsupportedDeclarationKind indicates that a declaration with no
	// identifier prefix reached the identifier formatter. It signals a defect
	// in the extractor, not a problem with the annotated source.
	ErrUnsupportedDeclarationKind = errors.New("unsupported declaration kind")

	// ErrUnsupportedArgumentKind indicates that a recognized annotation has an
	// argument that has no textual rendering, such as nil, a variable, a
	// function, or a struct or map literal.
	ErrUnsupportedArgumentKind = errors.New("unsupported argument kind")

	// ErrArgumentType indicates that a recognized annotation has an argument
	// that cannot be assigned to the parameter or field that receives it.
	ErrArgumentType = errors.New("mismatched argument type")
)

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a source file where the error
// was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Underlying returns the underlying error.
func (e *ErrorWithPosition) Underlying() error {
	return e.err
}

// Unwrap returns the underlying error, so that errors.Is can be used to test
// for ErrUnsupportedDeclarationKind and ErrUnsupportedArgumentKind.
func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}
