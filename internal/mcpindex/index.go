// Package mcpindex loads a merged SCIP index produced by "scipcxx driver"
// and answers the read-only queries cmd/scipcxx-mcp exposes as MCP tools
// (SPEC_FULL.md §0: "exposes the merger/formatter as a Model Context
// Protocol tool server for editor integrations that want to query a SCIP
// index without shelling out"). Nothing here mutates the index; it is
// loaded once at server startup and held in memory for the process
// lifetime, the same way internal/merger.Merger holds its accumulated
// state only for the span of one driver run.
package mcpindex

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// Index wraps a loaded scip.Index with lookup indexes built once at load
// time, so repeated tool calls don't re-scan every document.
type Index struct {
	raw *scip.Index

	// bySymbol maps a full SCIP symbol string to its SymbolInformation,
	// across both in-project documents and external symbols.
	bySymbol map[string]*scip.SymbolInformation

	// byDescriptorName maps a bare descriptor name (the text before its
	// suffix character, e.g. "f" out of "a/f().") to every full symbol
	// string ending in that name, for the approximate resolver.
	byDescriptorName map[string][]string
}

// Load reads a final index file written by "scipcxx driver" (spec.md §6
// "Final index"): a protobuf-marshaled scip.Index, uncompressed (unlike
// shard.Write's LZ4-framed shards — the final index is a one-time read by
// a SCIP consumer, not a hot path worth compressing).
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied CLI flag.
	if err != nil {
		return nil, fmt.Errorf("mcpindex: read %s: %w", path, err)
	}

	var raw scip.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("mcpindex: unmarshal %s: %w", path, err)
	}

	return build(&raw), nil
}

func build(raw *scip.Index) *Index {
	idx := &Index{
		raw:              raw,
		bySymbol:         make(map[string]*scip.SymbolInformation),
		byDescriptorName: make(map[string][]string),
	}

	for _, doc := range raw.Documents {
		for _, sym := range doc.Symbols {
			idx.index(sym)
		}
	}

	for _, sym := range raw.ExternalSymbols {
		idx.index(sym)
	}

	for name := range idx.byDescriptorName {
		sort.Strings(idx.byDescriptorName[name])
	}

	return idx
}

func (idx *Index) index(sym *scip.SymbolInformation) {
	idx.bySymbol[sym.Symbol] = sym

	name := descriptorName(sym.Symbol)
	if name == "" {
		return
	}

	idx.byDescriptorName[name] = append(idx.byDescriptorName[name], sym.Symbol)
}

// descriptorName extracts the bare name of a symbol's last descriptor,
// e.g. "a/f()." -> "f", "a/b#" -> "b". Best-effort: malformed or local
// symbols yield "".
func descriptorName(symbol string) string {
	fields := strings.Fields(symbol)
	if len(fields) == 0 {
		return ""
	}

	last := fields[len(fields)-1]
	if last == "" {
		return ""
	}

	// Strip a trailing suffix character and, for methods, a
	// "(disambiguator)" tail before it.
	trimmed := strings.TrimRight(last, "/#.")

	if idx := strings.IndexByte(trimmed, '('); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}

	return trimmed
}

// LookupSymbol returns the SymbolInformation for an exact SCIP symbol
// string, if present.
func (idx *Index) LookupSymbol(symbol string) (*scip.SymbolInformation, bool) {
	sym, ok := idx.bySymbol[symbol]

	return sym, ok
}

// ApproximateLookup implements the supplemented "ApproximateNameResolver"
// feature (SPEC_FULL.md §12.4): a best-effort mapping from a bare
// identifier to every full symbol string sharing it as a descriptor name,
// used when the caller doesn't have an exact SCIP symbol string on hand.
func (idx *Index) ApproximateLookup(name string) []string {
	return append([]string(nil), idx.byDescriptorName[name]...)
}

// ListDocuments returns every document's relative path, sorted.
func (idx *Index) ListDocuments() []string {
	paths := make([]string, 0, len(idx.raw.Documents))
	for _, doc := range idx.raw.Documents {
		paths = append(paths, doc.RelativePath)
	}

	sort.Strings(paths)

	return paths
}

// Document returns one document by relative path.
func (idx *Index) Document(relativePath string) (*scip.Document, bool) {
	for _, doc := range idx.raw.Documents {
		if doc.RelativePath == relativePath {
			return doc, true
		}
	}

	return nil, false
}

// Stats summarizes the loaded index: document, symbol, external symbol and
// occurrence counts. These are computed from the index itself and differ
// from the per-run counters "scipcxx driver --stats" prints.
type Stats struct {
	Documents       int `json:"documents"`
	Symbols         int `json:"symbols"`
	ExternalSymbols int `json:"external_symbols"`
	Occurrences     int `json:"occurrences"`
}

// Stats computes summary counters over the loaded index.
func (idx *Index) Stats() Stats {
	s := Stats{
		Documents:       len(idx.raw.Documents),
		ExternalSymbols: len(idx.raw.ExternalSymbols),
	}

	for _, doc := range idx.raw.Documents {
		s.Symbols += len(doc.Symbols)
		s.Occurrences += len(doc.Occurrences)
	}

	return s
}
