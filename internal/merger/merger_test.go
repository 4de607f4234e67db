package merger_test

import (
	"fmt"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/Sumatoshi-tech/scipcxx/internal/merger"
	"github.com/Sumatoshi-tech/scipcxx/internal/shard"
)

func TestMergerNoDuplicateDocumentsForSinglyIndexedPaths(t *testing.T) {
	t.Parallel()

	m := merger.New()
	m.Ingest(shard.Data{Documents: []*scip.Document{
		{RelativePath: "a.cc", Language: "CPP"},
	}})

	idx := m.Build()
	require.Len(t, idx.Documents, 1)
	assert.Equal(t, "a.cc", idx.Documents[0].RelativePath)
}

// TestMergerCombinesIllBehavedHeaderShards covers spec.md §8 scenario 4: two
// shards both naming h.h (one per variant the driver's header-ownership
// arbitration chose to emit) are combined into a single Document whose
// occurrences and symbols are the union of both, not a duplicate entry.
func TestMergerCombinesIllBehavedHeaderShards(t *testing.T) {
	t.Parallel()

	m := merger.New()

	m.Ingest(shard.Data{Documents: []*scip.Document{
		{
			RelativePath: "h.h",
			Occurrences:  []*scip.Occurrence{{Range: []int32{0, 0, 5}, Symbol: "scip-cxx cxx . . h/g().", SymbolRoles: 1}},
			Symbols:      []*scip.SymbolInformation{{Symbol: "scip-cxx cxx . . h/g().", DisplayName: "g"}},
		},
	}})

	m.Ingest(shard.Data{Documents: []*scip.Document{
		{
			RelativePath: "h.h",
			Occurrences:  []*scip.Occurrence{{Range: []int32{10, 0, 15}, Symbol: "scip-cxx cxx . . h/g().", SymbolRoles: 1}},
			Symbols:      []*scip.SymbolInformation{{Symbol: "scip-cxx cxx . . h/g().", DisplayName: "g"}},
		},
	}})

	idx := m.Build()
	require.Len(t, idx.Documents, 1)
	doc := idx.Documents[0]
	assert.Equal(t, "h.h", doc.RelativePath)
	assert.Len(t, doc.Occurrences, 2)
	assert.Len(t, doc.Symbols, 1)
}

func TestMergerDeduplicatesRelationshipsByFullTuple(t *testing.T) {
	t.Parallel()

	m := merger.New()

	base := &scip.SymbolInformation{
		Symbol: "scip-cxx cxx . . a/f().",
		Relationships: []*scip.Relationship{
			{Symbol: "scip-cxx cxx . . base/f().", IsImplementation: true},
		},
	}

	m.Ingest(shard.Data{Documents: []*scip.Document{{RelativePath: "a.cc", Symbols: []*scip.SymbolInformation{base}}}})

	// Same target, different relationship kind: must be kept, not dropped
	// as a duplicate of the is_implementation edge above.
	dup := &scip.SymbolInformation{
		Symbol: "scip-cxx cxx . . a/f().",
		Relationships: []*scip.Relationship{
			{Symbol: "scip-cxx cxx . . base/f().", IsReference: true},
		},
	}

	m.Ingest(shard.Data{Documents: []*scip.Document{{RelativePath: "a.cc", Symbols: []*scip.SymbolInformation{dup}}}})

	idx := m.Build()
	require.Len(t, idx.Documents, 1)
	require.Len(t, idx.Documents[0].Symbols, 1)
	assert.Len(t, idx.Documents[0].Symbols[0].Relationships, 2)
}

// TestMergerRoundTripIdempotent covers spec.md §8's round-trip property:
// re-running the merger over the same shard data twice produces the same
// serialized index. On mismatch, the failure message includes a readable
// diff (via go-diff) of the two index's text dumps rather than a raw byte
// comparison, the way the teacher's diff tooling renders mismatches.
func TestMergerRoundTripIdempotent(t *testing.T) {
	t.Parallel()

	data := shard.Data{
		Documents: []*scip.Document{
			{
				RelativePath: "a.cc",
				Language:     "CPP",
				Occurrences:  []*scip.Occurrence{{Range: []int32{0, 0, 10}, Symbol: "scip-cxx cxx a 1.0.0 a/f().", SymbolRoles: 1}},
				Symbols:      []*scip.SymbolInformation{{Symbol: "scip-cxx cxx a 1.0.0 a/f().", DisplayName: "f"}},
			},
		},
		ExternalSymbols: []*scip.SymbolInformation{
			{Symbol: "scip-cxx cxx ext 1.0.0 ext/g().", DisplayName: "g"},
		},
	}

	first := buildOnce(t, data)
	second := buildOnce(t, data)

	firstBytes, err := proto.Marshal(first)
	require.NoError(t, err)

	secondBytes, err := proto.Marshal(second)
	require.NoError(t, err)

	if string(firstBytes) != string(secondBytes) {
		dmp := diffmatchpatch.New()
		diffs := dmp.DiffMain(fmt.Sprintf("%v", first), fmt.Sprintf("%v", second), false)
		t.Fatalf("merger not idempotent:\n%s", dmp.DiffPrettyText(diffs))
	}
}

func buildOnce(t *testing.T, data shard.Data) *scip.Index {
	t.Helper()

	m := merger.New()
	m.Ingest(data)

	return m.Build()
}
