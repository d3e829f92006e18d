package parse

import (
	"context"
	"errors"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	// ErrSyntax is returned when a source file does not parse cleanly.
	ErrSyntax = errors.New("syntax error")
	// ErrUnsupported is returned for files with an unknown extension.
	ErrUnsupported = errors.New("unsupported file type")
)

// SyntaxError locates the first error node in a file.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
	Node   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error near %s", e.Path, e.Line, e.Column, e.Node)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// File is a parsed source file. Close releases the tree.
type File struct {
	Path    string
	Dialect Dialect
	Src     []byte
	Tree    *sitter.Tree
}

// Root returns the root node of the syntax tree.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
	}
}

// ParseFile reads and parses path.
func ParseFile(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(ctx, path, src)
}

// Parse parses src with the grammar selected by path's extension. A tree
// containing error or missing nodes is rejected with a *SyntaxError.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	dialect, ok := DialectForFile(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	lang, _ := Grammar(dialect)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse %s: %w", path, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		serr := &SyntaxError{Path: path, Line: 1, Column: 1, Node: root.Type()}
		if bad := firstError(root); bad != nil {
			p := bad.StartPoint()
			serr.Line = int(p.Row) + 1
			serr.Column = int(p.Column) + 1
			serr.Node = bad.Type()
		}
		tree.Close()
		return nil, serr
	}

	return &File{Path: path, Dialect: dialect, Src: src, Tree: tree}, nil
}

// firstError returns the first ERROR or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}
