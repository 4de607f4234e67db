package merger

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/Sumatoshi-tech/scipcxx/internal/shard"
	"github.com/Sumatoshi-tech/scipcxx/internal/symbol"
)

// resolveForwardDecls implements spec.md §4.7's three-way forward-
// declaration resolution:
//  1. a symbol defined in one of this run's own documents wins: the
//     forward decl contributes nothing further (the real definition already
//     carries its own documentation and occurrences).
//  2. failing that, a known external symbol wins: the forward decl's
//     documentation is adopted onto it if the external symbol doesn't
//     already carry any (spec.md "adopts documentation if none present").
//  3. failing both, a fake external symbol is synthesized from the
//     package-agnostic suffix (symbol.AddFakePrefix) so repeated forward
//     declarations of the same never-defined entity collapse onto one
//     symbol within this run instead of each minting their own.
func resolveForwardDecls(documents map[string]*scip.Document, externals map[string]*scip.SymbolInformation, forwards []shard.ForwardDeclRecord) {
	inProject := indexInProjectSuffixes(documents)

	for _, fwd := range forwards {
		if _, ok := inProject[fwd.Suffix]; ok {
			continue
		}

		if ext, ok := findExternalBySuffix(externals, fwd.Suffix); ok {
			if len(ext.Documentation) == 0 {
				ext.Documentation = fwd.Documentation
			}

			continue
		}

		fakeSymbol := symbol.AddFakePrefix(fwd.Suffix)

		existing, ok := externals[fakeSymbol]
		if !ok {
			externals[fakeSymbol] = &scip.SymbolInformation{
				Symbol:        fakeSymbol,
				DisplayName:   fmt.Sprintf("%v", fwd.References),
				Documentation: fwd.Documentation,
			}

			continue
		}

		if len(existing.Documentation) == 0 {
			existing.Documentation = fwd.Documentation
		}
	}
}

// indexInProjectSuffixes maps every in-project document's symbols to their
// package-agnostic descriptor suffix, the comparison key a forward
// declaration's Suffix field already is (internal/indexer/tu.go).
func indexInProjectSuffixes(documents map[string]*scip.Document) map[string]*scip.SymbolInformation {
	out := make(map[string]*scip.SymbolInformation)

	for _, doc := range documents {
		for _, s := range doc.Symbols {
			out[symbol.StripPackageCoordinates(s.Symbol)] = s
		}
	}

	return out
}

// findExternalBySuffix returns the external symbol matching suffix. Go map
// iteration order is randomized, and spec.md §9 leaves "a forward-decl
// suffix resolving to multiple external symbols" as an open question; this
// picks the lexicographically smallest full symbol string as the stable
// winner so a run is reproducible across processes even when a suffix is
// genuinely ambiguous.
func findExternalBySuffix(externals map[string]*scip.SymbolInformation, suffix string) (*scip.SymbolInformation, bool) {
	var names []string

	for name, ext := range externals {
		if fakeSuffix, ok := symbol.GetPackageAgnosticSuffix(ext.Symbol); ok {
			if fakeSuffix == suffix {
				names = append(names, name)
			}

			continue
		}

		if symbol.StripPackageCoordinates(ext.Symbol) == suffix {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, false
	}

	sort.Strings(names)

	return externals[names[0]], true
}
