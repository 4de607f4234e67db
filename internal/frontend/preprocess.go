package frontend

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/prehash"
)

// Tree-sitter has no preprocessor pass, so every directive arrives as a
// plain syntax node (package doc, language.go). Rather than lean on the
// grammar's internal field names for every directive kind — which drift
// between tree-sitter-c releases — directives are recognized by their node
// type's "preproc" prefix and their name/target extracted from the node's
// own text with these patterns, the same text the node's byte range
// already anchors a precise location to.
var (
	includeRe  = regexp.MustCompile(`#\s*include\s*(?:"([^"]+)"|<([^>]+)>)`)
	defineRe   = regexp.MustCompile(`#\s*define\s+([A-Za-z_]\w*)`)
	undefRe    = regexp.MustCompile(`#\s*undef\s+([A-Za-z_]\w*)`)
	ifdefRe    = regexp.MustCompile(`#\s*ifdef\s+([A-Za-z_]\w*)`)
	ifndefRe   = regexp.MustCompile(`#\s*ifndef\s+([A-Za-z_]\w*)`)
	elifdefRe  = regexp.MustCompile(`#\s*elifdef\s+([A-Za-z_]\w*)`)
	elifndefRe = regexp.MustCompile(`#\s*elifndef\s+([A-Za-z_]\w*)`)
	pragmaOnce = regexp.MustCompile(`#\s*pragma\s+once\b`)
)

// maxIncludeDepth bounds recursive #include resolution; real header stacks
// rarely exceed a few dozen, this just keeps a cyclic or runaway compile
// command from recursing forever.
const maxIncludeDepth = 128

// Walker drives one TU's worth of tree-sitter parses through a
// prehash.Hasher, resolving #include directives against a SearchPath and
// recursing into headers the same way a real preprocessor enters and
// exits files (spec.md §4.2).
type Walker struct {
	Hasher *prehash.Hasher
	Search SearchPath
	Lang   Language

	ids     map[string]pathmodel.FileID
	nextID  pathmodel.FileID
	guarded map[string]bool // path -> has a whole-file #ifndef/#define or #pragma once guard
	visited map[string]bool // path -> already fully walked once (guard short-circuit applies)
	onStack map[string]bool // path -> currently being walked (self-include guard)
}

// NewWalker returns a Walker for one translation unit.
func NewWalker(hasher *prehash.Hasher, search SearchPath, lang Language) *Walker {
	return &Walker{
		Hasher:  hasher,
		Search:  search,
		Lang:    lang,
		ids:     make(map[string]pathmodel.FileID),
		guarded: make(map[string]bool),
		visited: make(map[string]bool),
		onStack: make(map[string]bool),
	}
}

// idFor returns path's dense FileID, assigning a fresh one on first
// discovery (pathmodel.FileID's doc comment: "assigns these densely
// starting at zero as it discovers files").
func (w *Walker) idFor(path string) pathmodel.FileID {
	if id, ok := w.ids[path]; ok {
		return id
	}

	id := w.nextID
	w.nextID++
	w.ids[path] = id

	return id
}

// WalkMain parses the TU's main file, walks it, and returns the resulting
// Tree for the AST-visitor pass (internal/frontend/visit.go). Callers must
// Close the returned Tree.
func (w *Walker) WalkMain(mainPath pathmodel.AbsolutePath, source []byte) (*Tree, error) {
	tree, err := Parse(w.Lang, source)
	if err != nil {
		return nil, fmt.Errorf("frontend: parse main file %s: %w", mainPath, err)
	}

	key := mainPath.String()
	id := w.idFor(key)

	w.Hasher.EnterFile(id, mainPath, false)
	w.onStack[key] = true

	w.walkDirectives(tree, mainPath, 0)

	delete(w.onStack, key)
	w.visited[key] = true
	w.Hasher.ExitFile()

	return tree, nil
}

// walkDirectives visits tree's subtree, dispatching every preprocessor
// node to the hasher and recursing into #include targets at depth+1.
// Non-preprocessor nodes are skipped over (they contribute nothing to the
// transcript hash); the caller's own AST pass walks them separately from
// the returned Tree.
func (w *Walker) walkDirectives(tree *Tree, selfPath pathmodel.AbsolutePath, depth int) {
	Walk(tree.Root, func(n sitter.Node) bool {
		if !strings.HasPrefix(n.Type(), "preproc") {
			return true
		}

		text := tree.Text(n)
		line, col, _, _ := tree.Range(n)

		switch {
		case strings.HasPrefix(n.Type(), "preproc_include"):
			w.handleInclude(text, selfPath, depth+1)
		case strings.HasPrefix(n.Type(), "preproc_function_def"), strings.HasPrefix(n.Type(), "preproc_def"):
			if m := defineRe.FindStringSubmatch(text); m != nil {
				w.Hasher.MacroEvent(prehash.MacroDefined, m[1], line, col)
			}
		case ifdefRe.MatchString(text):
			m := ifdefRe.FindStringSubmatch(text)
			w.Hasher.MacroEvent(prehash.MacroIfdef, m[1], line, col)

			return true
		case ifndefRe.MatchString(text):
			m := ifndefRe.FindStringSubmatch(text)
			w.Hasher.MacroEvent(prehash.MacroIfndef, m[1], line, col)

			return true
		case elifdefRe.MatchString(text):
			m := elifdefRe.FindStringSubmatch(text)
			w.Hasher.MacroEvent(prehash.MacroElifdef, m[1], line, col)

			return true
		case elifndefRe.MatchString(text):
			m := elifndefRe.FindStringSubmatch(text)
			w.Hasher.MacroEvent(prehash.MacroElifndef, m[1], line, col)

			return true
		case undefRe.MatchString(text):
			m := undefRe.FindStringSubmatch(text)
			w.Hasher.MacroEvent(prehash.MacroUndef, m[1], line, col)
		}

		return false
	})
}

func (w *Walker) handleInclude(text string, selfPath pathmodel.AbsolutePath, depth int) {
	m := includeRe.FindStringSubmatch(text)
	if m == nil {
		return
	}

	spec := IncludeSpec{Spec: m[1], System: m[1] == ""}
	if spec.Spec == "" {
		spec.Spec = m[2]
	}

	selfDir := selfPath.String()
	if idx := strings.LastIndexByte(selfDir, '/'); idx >= 0 {
		selfDir = selfDir[:idx]
	}

	resolved, ok := w.Search.Resolve(selfDir, spec)
	if !ok {
		return
	}

	abs, err := pathmodel.TryAbsolutePath(resolved)
	if err != nil {
		return
	}

	w.Hasher.InclusionDirective(abs)
	w.enterInclude(abs, depth)
}

// enterInclude recurses into an #include target, applying the guard
// short-circuit: a file recognized (on a prior visit) as carrying a
// whole-file include guard contributes nothing on subsequent entries,
// matching the net effect a real preprocessor gets from the guard without
// this module re-implementing conditional compilation. Files without a
// detected guard are re-entered and re-hashed every time, so genuinely
// context-sensitive headers still surface as ill-behaved in
// prehash.Hasher.Flush (spec.md §4.2).
func (w *Walker) enterInclude(path pathmodel.AbsolutePath, depth int) {
	if depth > maxIncludeDepth {
		return
	}

	key := path.String()
	if w.onStack[key] {
		return
	}

	if w.visited[key] && w.guarded[key] {
		return
	}

	source, err := os.ReadFile(key)
	if err != nil {
		return
	}

	tree, err := Parse(w.Lang, source)
	if err != nil {
		return
	}
	defer tree.Close()

	id := w.idFor(key)

	w.Hasher.EnterFile(id, path, false)
	w.onStack[key] = true

	w.walkDirectives(tree, path, depth)

	delete(w.onStack, key)

	if !w.visited[key] {
		w.guarded[key] = pragmaOnce.Match(source) || hasIfndefGuard(source)
	}

	w.visited[key] = true
	w.Hasher.ExitFile()
}

// hasIfndefGuard reports whether source's first preprocessor token is
// #ifndef and the last is #endif — the classic whole-file include-guard
// idiom. A cheap text scan rather than a tree walk since it's only
// consulted once per file, on the first visit.
func hasIfndefGuard(source []byte) bool {
	trimmed := strings.TrimSpace(string(source))
	if !ifndefRe.MatchString(firstDirectiveLine(trimmed)) {
		return false
	}

	lastHash := strings.LastIndexByte(trimmed, '#')

	return lastHash >= 0 && strings.HasPrefix(strings.TrimSpace(trimmed[lastHash:]), "#endif")
}

func firstDirectiveLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			return trimmed
		}

		return ""
	}

	return ""
}
