package frontend

import (
	"context"
	"fmt"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Tree is a parsed file: the tree-sitter syntax tree plus the source bytes
// it was parsed from (node text is extracted by byte range, never copied
// up front).
type Tree struct {
	Language Language
	Source   []byte
	Root     sitter.Node
	raw      *sitter.Tree
}

// Close releases the underlying tree-sitter tree. Safe to call on a zero
// Tree.
func (t *Tree) Close() {
	if t != nil && t.raw != nil {
		t.raw.Close()
	}
}

// Text returns n's source text as a string copy.
func (t *Tree) Text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(t.Source)) || start > end {
		return ""
	}

	return string(t.Source[start:end])
}

// Range returns n's 1-based (startLine, startCol, endLine, endCol). The
// start position is inclusive; endCol is exclusive, one past the node's
// last character.
func (t *Tree) Range(n sitter.Node) (startLine, startCol, endLine, endCol int) {
	sp, ep := n.StartPoint(), n.EndPoint()

	return int(sp.Row) + 1, int(sp.Column) + 1, int(ep.Row) + 1, int(ep.Column) + 1
}

// Parse parses source under lang and returns the resulting Tree. Callers
// must Close it when done.
func Parse(lang Language, source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(languageFor(lang)); err != nil {
		return nil, fmt.Errorf("frontend: set language: %w", err)
	}

	raw, err := parser.ParseString(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("frontend: parse: %w", err)
	}

	root := raw.RootNode()
	if root.IsNull() {
		raw.Close()

		return nil, fmt.Errorf("frontend: parse produced no root node")
	}

	return &Tree{Language: lang, Source: source, Root: root, raw: raw}, nil
}

// Walk calls visit for n and every descendant, depth-first, pre-order.
// visit returns false to skip n's children (used by callers that already
// fully handled a subtree, e.g. a function body whose inner declarations
// are out of scope for the current pass).
func Walk(n sitter.Node, visit func(sitter.Node) bool) {
	if n.IsNull() {
		return
	}

	if !visit(n) {
		return
	}

	count := n.NamedChildCount()
	for i := range count {
		Walk(n.NamedChild(i), visit)
	}
}
