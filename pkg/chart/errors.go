package chart

import (
	"errors"
	"fmt"

	"github.com/l3aro/cflowchart/pkg/cast"
)

// ErrFunctionNotFound is returned when Options.Function names a function
// that the tree does not define.
var ErrFunctionNotFound = errors.New("function not found")

// UnsupportedError is returned in strict mode for constructs the generator
// cannot render.
type UnsupportedError struct {
	Type string
	Pos  cast.Position
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported construct %s at %d:%d", e.Type, e.Pos.Line, e.Pos.Column)
}
