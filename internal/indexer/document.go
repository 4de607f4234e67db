package indexer

import (
	"sort"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

// Merge combines a worker's MacroIndexer and one or more TUIndexer results
// into one PartialDocument per file id (spec.md §4.4 "Inter-indexer merge
// inside a worker": "a worker's macro indexer and TU indexer both append
// to the same per-file occurrence/symbol buffers; the merge is a
// concatenation, not a reconciliation — the two passes never observe the
// same declaration"). Occurrences are sorted afterward when determinism
// is requested, matching spec.md §4.6's determinism knob.
func Merge(macroDocs map[pathmodel.FileID]*PartialDocument, tuDocs []*PartialDocument, deterministic bool) map[pathmodel.FileID]*PartialDocument {
	merged := make(map[pathmodel.FileID]*PartialDocument, len(macroDocs)+len(tuDocs))

	for file, doc := range macroDocs {
		merged[file] = doc
	}

	for _, doc := range tuDocs {
		if doc == nil {
			continue
		}

		existing, ok := merged[docFileID(doc)]
		if !ok {
			merged[docFileID(doc)] = doc
			continue
		}

		mergeInto(existing, doc)
	}

	if deterministic {
		files := make([]pathmodel.FileID, 0, len(merged))
		for f := range merged {
			files = append(files, f)
		}

		sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

		for _, f := range files {
			merged[f].Sort()
		}
	}

	return merged
}

func docFileID(doc *PartialDocument) pathmodel.FileID { return doc.File }

func mergeInto(dst, src *PartialDocument) {
	dst.Occurrences = append(dst.Occurrences, src.Occurrences...)

	for sym, info := range src.Symbols {
		existing, ok := dst.Symbols[sym]
		if !ok {
			dst.Symbols[sym] = info
			continue
		}

		if existing.DisplayName == "" {
			existing.DisplayName = info.DisplayName
		}

		for _, doc := range info.Documentation {
			existing.Documentation = append(existing.Documentation, doc)
		}

		for _, rel := range info.Relationships {
			existing.addRelationship(rel)
		}
	}

	dst.Forwards = append(dst.Forwards, src.Forwards...)
}
