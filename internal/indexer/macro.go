package indexer

import (
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/prehash"
	"github.com/Sumatoshi-tech/scipcxx/internal/symbol"
)

// MacroIndexer turns a prehash.Hasher's recorded macro occurrences into
// per-file occurrences and symbol information (spec.md §4.4 "Macro
// indexer"). Macro uses inside a macro expansion are already reported by
// the hasher at their spelling location, not their expansion location, so
// nothing further is needed here to honor that invariant.
type MacroIndexer struct {
	formatter *symbol.Formatter
	docs      map[pathmodel.FileID]*PartialDocument
	relPath   func(pathmodel.FileID) (string, bool)
}

// NewMacroIndexer returns a MacroIndexer sharing formatter with the rest of
// the TU's indexing passes (formatter caches are keyed by source location
// for macros, so sharing it is what makes repeated macro uses collapse to
// one symbol). relPath resolves a file id to the relative path a document
// is filed under; files it can't resolve are skipped (spec.md §4.2
// "invalid file ids ... are popped without hashing" — the same tolerance
// extends here to any file the driver hasn't assigned a stable identity
// yet).
func NewMacroIndexer(formatter *symbol.Formatter, relPath func(pathmodel.FileID) (string, bool)) *MacroIndexer {
	return &MacroIndexer{
		formatter: formatter,
		docs:      make(map[pathmodel.FileID]*PartialDocument),
		relPath:   relPath,
	}
}

// Index records every occurrence in occs against its file's PartialDocument.
// Every occurrence of a macro name after its most recent definition shares
// that definition's symbol; a use with no recorded definition is keyed by
// its own location.
func (m *MacroIndexer) Index(occs []prehash.MacroOccurrence) {
	type macroLocation struct {
		path      string
		line, col int
	}

	defs := make(map[string]macroLocation)

	for _, occ := range occs {
		doc, ok := m.docFor(occ.File)
		if !ok {
			continue
		}

		loc, known := defs[occ.Name]
		if occ.Kind == prehash.MacroDefined || !known {
			loc = macroLocation{path: doc.RelPath, line: occ.Line, col: occ.Col}
		}

		if occ.Kind == prehash.MacroDefined {
			defs[occ.Name] = loc
		}

		sym := m.formatter.MacroSymbol(loc.path, loc.line, loc.col)

		role, syntax, isDef := macroRole(occ.Kind)

		doc.addOccurrence(Occurrence{
			Range:      [4]int{occ.Line, occ.Col, occ.Line, occ.Col + len(occ.Name)},
			Symbol:     sym,
			Roles:      role,
			SyntaxKind: syntax,
		})

		if isDef {
			doc.symbolInfo(sym, occ.Name)
		}
	}
}

// Documents returns every file's accumulated PartialDocument.
func (m *MacroIndexer) Documents() map[pathmodel.FileID]*PartialDocument {
	return m.docs
}

func (m *MacroIndexer) docFor(file pathmodel.FileID) (*PartialDocument, bool) {
	if doc, ok := m.docs[file]; ok {
		return doc, true
	}

	relPath, ok := m.relPath(file)
	if !ok {
		return nil, false
	}

	doc := newPartialDocument(file, "CPP", relPath)
	m.docs[file] = doc

	return doc, true
}

func macroRole(kind prehash.MacroEventKind) (role Role, syntaxKind string, isDefinition bool) {
	switch kind {
	case prehash.MacroDefined:
		return RoleDefinition, "IdentifierMacroDefinition", true
	case prehash.MacroUndef:
		return RoleReference, "IdentifierMacro", false
	case prehash.MacroExpands:
		return RoleReference, "IdentifierMacro", false
	case prehash.MacroIfdef, prehash.MacroIfndef, prehash.MacroElifdef, prehash.MacroElifndef, prehash.MacroDefinedOperator:
		return RoleReference, "IdentifierMacro", false
	default:
		return RoleReference, "IdentifierMacro", false
	}
}
