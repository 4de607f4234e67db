// Package indexer implements the macro indexer and TU indexer (spec.md
// §4.4): two sibling passes that feed the same per-document occurrence and
// symbol-information buffers, merged per worker into partial documents
// ready for shard serialization (internal/shard).
package indexer

import (
	"sort"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

// Role is the occurrence role bitmap (spec.md §3 "role-bitmap
// (definition|reference|...)").
type Role int

const (
	RoleReference Role = 1 << iota
	RoleDefinition
	RoleWriteAccess
	RoleReadAccess
)

// Occurrence is one symbol use at a source range (spec.md §3). Range is
// (startLine, startCol, endLine, endCol), 1-based, with endCol one past
// the last character, matching internal/frontend.Tree.Range.
type Occurrence struct {
	Range      [4]int
	Symbol     string
	Roles      Role
	SyntaxKind string
}

// Relationship is one edge from a SymbolInformation to another symbol
// (spec.md §3 "(target-symbol, is-definition, is-reference,
// is-type-definition, is-implementation)"), deduplicated by tuple.
type Relationship struct {
	Symbol           string
	IsReference      bool
	IsImplementation bool
	IsTypeDefinition bool
}

// SymbolInfo is one symbol's accumulated metadata across a TU. Documentation
// is first-non-empty-wins (spec.md §3 Design Notes on deterministic
// merging).
type SymbolInfo struct {
	Symbol        string
	DisplayName   string
	Documentation []string
	Relationships []Relationship
}

func (s *SymbolInfo) addRelationship(rel Relationship) {
	for _, existing := range s.Relationships {
		if existing == rel {
			return
		}
	}

	s.Relationships = append(s.Relationships, rel)
}

// ForwardDecl is a forward-declared entity's package-agnostic matching key
// plus whatever references were recorded against it in this TU (spec.md §3
// "ForwardDecl").
type ForwardDecl struct {
	Suffix        string
	Documentation []string
	References    []string
}

// PartialDocument is one file's worth of occurrences and in-progress symbol
// information, as produced by a worker (spec.md §3 "PartialDocument
// (per-worker)").
type PartialDocument struct {
	File        pathmodel.FileID
	Language    string
	RelPath     string
	Occurrences []Occurrence
	Symbols     map[string]*SymbolInfo
	Forwards    []ForwardDecl
}

func newPartialDocument(file pathmodel.FileID, language, relPath string) *PartialDocument {
	return &PartialDocument{
		File:     file,
		Language: language,
		RelPath:  relPath,
		Symbols:  make(map[string]*SymbolInfo),
	}
}

func (d *PartialDocument) addOccurrence(occ Occurrence) {
	for _, existing := range d.Occurrences {
		if existing.Range == occ.Range && existing.Symbol == occ.Symbol && existing.Roles == occ.Roles {
			return // spec.md §4.4: "Duplicate occurrences at identical ranges are suppressed"
		}
	}

	d.Occurrences = append(d.Occurrences, occ)
}

func (d *PartialDocument) symbolInfo(symbol, displayName string) *SymbolInfo {
	if existing, ok := d.Symbols[symbol]; ok {
		return existing
	}

	info := &SymbolInfo{Symbol: symbol, DisplayName: displayName}
	d.Symbols[symbol] = info

	return info
}

// Sort orders occurrences by (range, symbol, role) the way the determinism
// knob requires (spec.md §4.6 "Determinism knob").
func (d *PartialDocument) Sort() {
	sort.Slice(d.Occurrences, func(i, j int) bool {
		a, b := d.Occurrences[i], d.Occurrences[j]
		if a.Range != b.Range {
			return rangeLess(a.Range, b.Range)
		}

		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}

		return a.Roles < b.Roles
	})
}

func rangeLess(a, b [4]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}
