package chart

import "strings"

// Shape is a flowchart node shape.
type Shape int

const (
	Box Shape = iota
	RoundedBox
	Capsule
	Subroutine
	Circle
	Rhombus
	Hexagon
	LeftParallelogram
	RightParallelogram
)

type delimiters struct {
	open, close string
	name        string
}

var shapes = [...]delimiters{
	Box:                {"[", "]", "box"},
	RoundedBox:         {"(", ")", "rounded_box"},
	Capsule:            {"([", "])", "capsule"},
	Subroutine:         {"[[", "]]", "subroutine"},
	Circle:             {"((", "))", "circle"},
	Rhombus:            {"{", "}", "rhombus"},
	Hexagon:            {"{{", "}}", "hexagon"},
	LeftParallelogram:  {"[\\", "\\]", "left_parallelogram"},
	RightParallelogram: {"[/", "/]", "right_parallelogram"},
}

// Shapes lists the whole catalog in declaration order.
func Shapes() []Shape {
	out := make([]Shape, len(shapes))
	for i := range shapes {
		out[i] = Shape(i)
	}
	return out
}

func (s Shape) lookup() delimiters {
	if s < 0 || int(s) >= len(shapes) {
		return shapes[Box]
	}
	return shapes[s]
}

// Delimiters returns the opening and closing delimiter strings of the shape.
// Unknown values fall back to Box.
func (s Shape) Delimiters() (open, close string) {
	d := s.lookup()
	return d.open, d.close
}

// String returns the shape name.
func (s Shape) String() string {
	return s.lookup().name
}

// MarshalText encodes the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Wrap returns text quoted and enclosed in the shape's delimiters,
// e.g. `["text"]` for Box.
func (s Shape) Wrap(text string) string {
	d := s.lookup()
	return d.open + `"` + EscapeLabel(text) + `"` + d.close
}

var labelEscaper = strings.NewReplacer(
	`"`, "#quot;",
	"\r\n", "<br/>",
	"\n", "<br/>",
	"\r", "<br/>",
)

// EscapeLabel neutralises characters that would terminate a quoted label or
// break the line-oriented output.
func EscapeLabel(text string) string {
	return labelEscaper.Replace(text)
}
