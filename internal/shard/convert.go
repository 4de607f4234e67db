// Package shard implements the on-disk partial-index format a worker writes
// at the end of Phase B (spec.md §4.7 "shard"): a repeated Document field
// plus a repeated ExternalSymbol field, carried verbatim in the
// pre-defined protobuf schema spec.md §1 treats as an external given
// (github.com/sourcegraph/scip's generated Go bindings). The merger reads
// these shards back; nothing in this package interprets their contents
// beyond conversion to and from internal/indexer's in-progress types.
package shard

import (
	"github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/Sumatoshi-tech/scipcxx/internal/indexer"
)

// syntaxKindByName maps the free-form SyntaxKind strings internal/indexer
// attaches to an Occurrence (spec.md §4.4's visitor callbacks, and
// internal/indexer/macro.go's macroRole) onto the scip.SyntaxKind enum the
// wire schema actually carries. Unrecognized kinds fall back to
// UnspecifiedSyntaxKind rather than failing the conversion — the indexer
// still carries the original string in memory for anything that wants it
// (tests, debugging) even though the wire format can't round-trip an
// arbitrary string (see DESIGN.md).
var syntaxKindByName = map[string]scip.SyntaxKind{
	"Identifier":                scip.SyntaxKind_Identifier,
	"IdentifierMacro":           scip.SyntaxKind_IdentifierMacro,
	"IdentifierMacroDefinition": scip.SyntaxKind_IdentifierMacroDefinition,
	"EnumDefinition":            scip.SyntaxKind_IdentifierType,
	"EnumMemberDeclaration":     scip.SyntaxKind_IdentifierConstant,
	"TypeDefinition":            scip.SyntaxKind_IdentifierType,
	"TypeParameterDefinition":   scip.SyntaxKind_IdentifierTypeParameter,
}

func syntaxKindFor(name string) scip.SyntaxKind {
	if k, ok := syntaxKindByName[name]; ok {
		return k
	}

	return scip.SyntaxKind_UnspecifiedSyntaxKind
}

// ToDocument converts one worker-side PartialDocument into the wire
// Document message, collapsing a single-line range to the 3-element form
// (spec.md §3: "single-line occurrences collapse the end-line in the wire
// range to save space").
func ToDocument(doc *indexer.PartialDocument) *scip.Document {
	out := &scip.Document{
		Language:     doc.Language,
		RelativePath: doc.RelPath,
		Occurrences:  make([]*scip.Occurrence, 0, len(doc.Occurrences)),
		Symbols:      make([]*scip.SymbolInformation, 0, len(doc.Symbols)),
	}

	for _, occ := range doc.Occurrences {
		out.Occurrences = append(out.Occurrences, toOccurrence(occ))
	}

	for _, info := range doc.Symbols {
		out.Symbols = append(out.Symbols, toSymbolInformation(info))
	}

	return out
}

func toOccurrence(occ indexer.Occurrence) *scip.Occurrence {
	return &scip.Occurrence{
		Range:       wireRange(occ.Range),
		Symbol:      occ.Symbol,
		SymbolRoles: int32(occ.Roles),
		SyntaxKind:  syntaxKindFor(occ.SyntaxKind),
	}
}

// wireRange collapses [startLine, startCol, endLine, endCol] (1-based with
// an exclusive endCol, internal/indexer's convention) to scip's 0-based
// [startLine, startCol, endCol] form when the occurrence spans one line,
// or the full 4-element form otherwise.
func wireRange(r [4]int) []int32 {
	startLine, startCol, endLine, endCol := r[0]-1, r[1]-1, r[2]-1, r[3]-1

	if startLine == endLine {
		return []int32{int32(startLine), int32(startCol), int32(endCol)}
	}

	return []int32{int32(startLine), int32(startCol), int32(endLine), int32(endCol)}
}

func fromWireRange(r []int32) [4]int {
	switch len(r) {
	case 3:
		return [4]int{int(r[0]) + 1, int(r[1]) + 1, int(r[0]) + 1, int(r[2]) + 1}
	case 4:
		return [4]int{int(r[0]) + 1, int(r[1]) + 1, int(r[2]) + 1, int(r[3]) + 1}
	default:
		return [4]int{}
	}
}

func toSymbolInformation(info *indexer.SymbolInfo) *scip.SymbolInformation {
	out := &scip.SymbolInformation{
		Symbol:        info.Symbol,
		DisplayName:   info.DisplayName,
		Documentation: append([]string(nil), info.Documentation...),
	}

	for _, rel := range info.Relationships {
		out.Relationships = append(out.Relationships, &scip.Relationship{
			Symbol:           rel.Symbol,
			IsReference:      rel.IsReference,
			IsImplementation: rel.IsImplementation,
			IsTypeDefinition: rel.IsTypeDefinition,
		})
	}

	return out
}

// FromDocument converts a wire Document back into a PartialDocument, for
// the merger's round-trip tests (spec.md §8 "Re-running the merger on a
// single shard yields a byte-identical result").
func FromDocument(doc *scip.Document) *indexer.PartialDocument {
	out := &indexer.PartialDocument{
		Language: doc.Language,
		RelPath:  doc.RelativePath,
		Symbols:  make(map[string]*indexer.SymbolInfo, len(doc.Symbols)),
	}

	for _, occ := range doc.Occurrences {
		out.Occurrences = append(out.Occurrences, indexer.Occurrence{
			Range:      fromWireRange(occ.Range),
			Symbol:     occ.Symbol,
			Roles:      indexer.Role(occ.SymbolRoles),
			SyntaxKind: syntaxKindName(occ.SyntaxKind),
		})
	}

	for _, info := range doc.Symbols {
		entry := &indexer.SymbolInfo{
			Symbol:        info.Symbol,
			DisplayName:   info.DisplayName,
			Documentation: append([]string(nil), info.Documentation...),
		}

		for _, rel := range info.Relationships {
			entry.Relationships = append(entry.Relationships, indexer.Relationship{
				Symbol:           rel.Symbol,
				IsReference:      rel.IsReference,
				IsImplementation: rel.IsImplementation,
				IsTypeDefinition: rel.IsTypeDefinition,
			})
		}

		out.Symbols[info.Symbol] = entry
	}

	return out
}

func syntaxKindName(k scip.SyntaxKind) string {
	for name, v := range syntaxKindByName {
		if v == k {
			return name
		}
	}

	return ""
}

// ToExternalSymbol converts an indexer.SymbolInfo known to be external
// (spec.md §4.7 "external symbols") into the wire SymbolInformation form.
func ToExternalSymbol(info *indexer.SymbolInfo) *scip.SymbolInformation {
	return toSymbolInformation(info)
}
