// Package merger implements the final merge stage (spec.md §4.7): it reads
// every worker's shard, combines documents that share a relative path (a
// header re-indexed under more than one ill-behaved variant), resolves
// forward declarations against the full set of symbols observed across
// the whole run, and emits one deterministic SCIP index.
package merger

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/Sumatoshi-tech/scipcxx/internal/shard"
)

// Merger accumulates shard data across every worker's completed jobs.
type Merger struct {
	documents map[string]*scip.Document // keyed by relative path
	docOrder  []string
	externals map[string]*scip.SymbolInformation // keyed by symbol
	forwards  []shard.ForwardDeclRecord
}

// New returns an empty Merger.
func New() *Merger {
	return &Merger{
		documents: make(map[string]*scip.Document),
		externals: make(map[string]*scip.SymbolInformation),
	}
}

// Ingest folds one shard's contents into the accumulated state. Documents
// sharing a relative path are combined (spec.md §4.7 "multiply-indexed
// paths"); documents seen for the first time are kept as-is ("singly-
// indexed paths").
func (m *Merger) Ingest(data shard.Data) {
	for _, doc := range data.Documents {
		if existing, ok := m.documents[doc.RelativePath]; ok {
			combineDocuments(existing, doc)

			continue
		}

		m.documents[doc.RelativePath] = doc
		m.docOrder = append(m.docOrder, doc.RelativePath)
	}

	for _, sym := range data.ExternalSymbols {
		if existing, ok := m.externals[sym.Symbol]; ok {
			combineSymbolInformation(existing, sym)

			continue
		}

		m.externals[sym.Symbol] = sym
	}

	m.forwards = append(m.forwards, data.ForwardDeclInfos...)
}

func combineDocuments(dst, src *scip.Document) {
	dst.Occurrences = append(dst.Occurrences, src.Occurrences...)

	bySymbol := make(map[string]*scip.SymbolInformation, len(dst.Symbols))
	for _, s := range dst.Symbols {
		bySymbol[s.Symbol] = s
	}

	for _, s := range src.Symbols {
		if existing, ok := bySymbol[s.Symbol]; ok {
			combineSymbolInformation(existing, s)

			continue
		}

		dst.Symbols = append(dst.Symbols, s)
		bySymbol[s.Symbol] = s
	}
}

func combineSymbolInformation(dst, src *scip.SymbolInformation) {
	if dst.DisplayName == "" {
		dst.DisplayName = src.DisplayName
	}

	dst.Documentation = append(dst.Documentation, src.Documentation...)

	existing := make(map[string]bool, len(dst.Relationships))
	for _, r := range dst.Relationships {
		existing[relationshipKey(r)] = true
	}

	for _, r := range src.Relationships {
		if existing[relationshipKey(r)] {
			continue
		}

		dst.Relationships = append(dst.Relationships, r)
		existing[relationshipKey(r)] = true
	}
}

// relationshipKey dedups by the full tuple (spec.md §3 "Deduplicated by
// relationship tuple"), not just the target symbol: the same target can
// carry distinct implementation/reference/definition relationships (e.g.
// an override that is both is_implementation and is_reference to the same
// base method) and both must survive a merge.
func relationshipKey(r *scip.Relationship) string {
	return fmt.Sprintf("%s|%t|%t|%t", r.Symbol, r.IsReference, r.IsImplementation, r.IsTypeDefinition)
}

// Build resolves every forward declaration and returns the final,
// deterministically ordered Index (spec.md §4.6 "Determinism knob":
// documents sorted by relative path, each document's occurrences already
// sorted by the worker that wrote it, which always sorts them).
func (m *Merger) Build() *scip.Index {
	resolveForwardDecls(m.documents, m.externals, m.forwards)

	paths := append([]string(nil), m.docOrder...)
	sort.Strings(paths)

	docs := make([]*scip.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, m.documents[p])
	}

	extNames := make([]string, 0, len(m.externals))
	for name := range m.externals {
		extNames = append(extNames, name)
	}

	sort.Strings(extNames)

	externals := make([]*scip.SymbolInformation, 0, len(extNames))
	for _, name := range extNames {
		externals = append(externals, m.externals[name])
	}

	return &scip.Index{
		Metadata:        &scip.Metadata{ToolInfo: &scip.ToolInfo{Name: "scipcxx"}},
		Documents:       docs,
		ExternalSymbols: externals,
	}
}
