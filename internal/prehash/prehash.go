// Package prehash implements the preprocessor transcript hasher (spec.md
// §4.2): it wraps the front-end's preprocessor callbacks and produces, for
// every file observed during a translation unit, a content fingerprint
// that is later used to tell "well-behaved" headers (one hash across every
// TU that included them) from "ill-behaved" ones (content that varies by
// inclusion context, e.g. guarded by different macros per includer).
package prehash

import (
	"regexp"
	"sort"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

// MacroEventKind distinguishes the directive kinds the front-end reports
// during preprocessing (spec.md §4.2).
type MacroEventKind int

const (
	MacroDefined MacroEventKind = iota
	MacroUndef
	MacroExpands
	MacroIfdef
	MacroIfndef
	MacroElifdef
	MacroElifndef
	MacroDefinedOperator
)

// MacroOccurrence is a single macro-directive observation handed to the
// indexer for symbol/occurrence recording.
type MacroOccurrence struct {
	Kind MacroEventKind
	File pathmodel.FileID
	Name string
	Line int
	Col  int
}

// IncludeEdge records that FromFile contains an #include resolving to To.
type IncludeEdge struct {
	FromFile pathmodel.FileID
	To       pathmodel.AbsolutePath
}

// HistoryRow is one mix operation recorded for a file whose path matched
// the debug history pattern (spec.md §4.2: "emitted as YAML per-file at
// exit").
type HistoryRow struct {
	Before  uint64 `yaml:"before"`
	Context string `yaml:"context"`
	After   uint64 `yaml:"after"`
}

type frame struct {
	fileID  pathmodel.FileID
	path    pathmodel.AbsolutePath
	builder *pathmodel.HashValue
	invalid bool
}

// FlushResult is everything the hasher knows once a TU is fully processed.
type FlushResult struct {
	WellBehaved []pathmodel.AbsolutePath
	IllBehaved  []pathmodel.AbsolutePath
	Lookup      *pathmodel.ClangIDLookupMap
	Macros      []MacroOccurrence
	Includes    []IncludeEdge
	Histories   map[string][]HistoryRow
}

// observedHash is one (file id, hash) pair completed during the TU, kept
// in encounter order per path so Flush can both resolve lookups and
// classify well/ill-behaved files.
type observedHash struct {
	fileID pathmodel.FileID
	hash   uint64
}

// Hasher drives one TU's worth of EnterFile/ExitFile/macro/include
// callbacks and produces a FlushResult at end-of-TU.
type Hasher struct {
	stack    []frame
	observed map[string][]observedHash // keyed by normalized path
	macros   []MacroOccurrence
	includes []IncludeEdge

	historyPattern *regexp.Regexp
	histories      map[string][]HistoryRow
}

// NewHasher returns a Hasher for one TU. historyPattern, if non-nil,
// enables per-file mix-operation history recording for any file whose
// normalized path matches it.
func NewHasher(historyPattern *regexp.Regexp) *Hasher {
	return &Hasher{
		observed:       make(map[string][]observedHash),
		historyPattern: historyPattern,
		histories:      make(map[string][]HistoryRow),
	}
}

// EnterFile pushes a fresh builder frame. When invalid is true (the
// front-end's invalid-file-id convention for imaginary/buffer files) the
// frame is never mixed into and is popped without hashing on ExitFile.
func (h *Hasher) EnterFile(id pathmodel.FileID, path pathmodel.AbsolutePath, invalid bool) {
	f := frame{fileID: id, path: path, invalid: invalid}

	if !invalid {
		f.builder = pathmodel.NewHashValue()
		f.builder.MixString(path.String())
	}

	h.stack = append(h.stack, f)
}

// ExitFile pops the top frame, finalizes its hash, and mixes it into the
// parent builder (the includer). Tolerates an empty stack (spec.md §4.2's
// "unbalanced Enter/Exit pairs are tolerated") by doing nothing.
func (h *Hasher) ExitFile() {
	if len(h.stack) == 0 {
		return
	}

	top := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]

	if top.invalid {
		return
	}

	value := top.builder.Seal()
	key := top.path.String()
	h.observed[key] = append(h.observed[key], observedHash{fileID: top.fileID, hash: value})

	if parent := h.currentBuilder(); parent != nil {
		before := parent.Peek()
		parent.MixUint64(value)
		h.recordHistory(h.currentPath(), before, "include:"+key, parent.Peek())
	}
}

// FlushMainFile force-exits every remaining frame on the stack, the
// "main-file frame is force-exited" tolerance of spec.md §4.2.
func (h *Hasher) FlushMainFile() {
	for len(h.stack) > 0 {
		h.ExitFile()
	}
}

func (h *Hasher) currentBuilder() *pathmodel.HashValue {
	for i := len(h.stack) - 1; i >= 0; i-- {
		if !h.stack[i].invalid {
			return h.stack[i].builder
		}
	}

	return nil
}

func (h *Hasher) currentFile() (pathmodel.FileID, bool) {
	for i := len(h.stack) - 1; i >= 0; i-- {
		if !h.stack[i].invalid {
			return h.stack[i].fileID, true
		}
	}

	return 0, false
}

func (h *Hasher) currentPath() string {
	for i := len(h.stack) - 1; i >= 0; i-- {
		if !h.stack[i].invalid {
			return h.stack[i].path.String()
		}
	}

	return ""
}

func (h *Hasher) recordHistory(path string, before uint64, context string, after uint64) {
	if h.historyPattern == nil || path == "" || !h.historyPattern.MatchString(path) {
		return
	}

	h.histories[path] = append(h.histories[path], HistoryRow{Before: before, Context: context, After: after})
}

// MacroEvent records a macro-directive occurrence and mixes its effect
// into the current builder (spec.md §4.2).
func (h *Hasher) MacroEvent(kind MacroEventKind, name string, line, col int) {
	file, ok := h.currentFile()
	if !ok {
		return
	}

	h.macros = append(h.macros, MacroOccurrence{Kind: kind, File: file, Name: name, Line: line, Col: col})

	if builder := h.currentBuilder(); builder != nil {
		before := builder.Peek()
		builder.MixUint64(uint64(kind))
		builder.MixString(name)
		h.recordHistory(h.currentPath(), before, "macro:"+name, builder.Peek())
	}
}

// InclusionDirective records an include edge for the current (including)
// file.
func (h *Hasher) InclusionDirective(to pathmodel.AbsolutePath) {
	file, ok := h.currentFile()
	if !ok {
		return
	}

	h.includes = append(h.includes, IncludeEdge{FromFile: file, To: to})
}

// Flush finalizes the TU: force-exits any unbalanced frames, builds the
// (path, hash, file-id) lookup map, and partitions paths into well-behaved
// (exactly one hash) and ill-behaved (two or more) sorted lists.
func (h *Hasher) Flush() FlushResult {
	h.FlushMainFile()

	lookup := pathmodel.NewClangIDLookupMap()

	var wellBehaved, illBehaved []pathmodel.AbsolutePath

	paths := make([]string, 0, len(h.observed))
	for p := range h.observed {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	for _, p := range paths {
		hashes := h.observed[p]
		abs := pathmodel.MustAbsolutePath(p)
		distinct := make(map[uint64]struct{}, len(hashes))

		for _, oh := range hashes {
			lookup.Insert(abs, oh.hash, oh.fileID)
			distinct[oh.hash] = struct{}{}
		}

		if len(distinct) == 1 {
			wellBehaved = append(wellBehaved, abs)
		} else {
			illBehaved = append(illBehaved, abs)
		}
	}

	return FlushResult{
		WellBehaved: wellBehaved,
		IllBehaved:  illBehaved,
		Lookup:      lookup,
		Macros:      h.macros,
		Includes:    h.includes,
		Histories:   h.histories,
	}
}
