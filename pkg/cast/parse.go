package cast

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// UnknownFile is the filename reported when none is supplied.
const UnknownFile = "<unknown>"

// parserPool is a pool of reusable tree-sitter parsers for C.
var parserPool = sync.Pool{
	New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(c.GetLanguage())
		return parser
	},
}

// ParseFile reads and parses a C source file.
func ParseFile(ctx context.Context, path string) (*TranslationUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Parse(ctx, content, path)
}

// Parse parses C source text into a TranslationUnit. The filename is only
// used to annotate errors. A tree containing syntax errors is rejected with
// a *ParseError describing the first one.
func Parse(ctx context.Context, src []byte, filename string) (*TranslationUnit, error) {
	if filename == "" {
		filename = UnknownFile
	}

	parser := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", filename)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src, filename)
	}

	conv := &converter{src: src}
	unit := &TranslationUnit{Span: conv.span(root)}
	unit.Items = conv.namedChildren(root)
	return unit, nil
}

// syntaxError locates the first ERROR or MISSING node below root.
func syntaxError(root *sitter.Node, src []byte, filename string) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	pos := bad.StartPoint()
	perr := &ParseError{
		File:   filename,
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
	}
	if bad.IsMissing() {
		perr.Message = fmt.Sprintf("missing %q", bad.Type())
	} else {
		perr.Message = fmt.Sprintf("syntax error near %q", excerpt(bad.Content(src)))
	}
	return perr
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
