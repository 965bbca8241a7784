package cast

import (
	"errors"
	"fmt"
)

// ErrMalformedLiteral is returned when a literal cannot be decoded.
var ErrMalformedLiteral = errors.New("malformed literal")

// ParseError reports the first syntax error found in a parse tree.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
