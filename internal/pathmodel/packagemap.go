package pathmodel

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/scipcxx/internal/compdb"
)

// negativeCacheSize bounds the longest-prefix negative cache so a large
// tree full of external (unmapped) paths can't grow it without bound over
// a long-running worker.
const negativeCacheSize = 4096

// PackageMap resolves an absolute path to the PackageMetadata of the
// longest package-root prefix that contains it, caching negative
// (no-match) prefixes so repeated lookups under the same
// unmatched directory don't re-walk the whole root table (spec.md §4.1).
type PackageMap struct {
	mu       sync.Mutex
	byRoot   map[string]PackageMetadata
	negative *lru.Cache[string, struct{}]
}

// NewPackageMap builds a PackageMap from a loaded --package-map file.
func NewPackageMap(entries []compdb.PackageMapEntry) *PackageMap {
	byRoot := make(map[string]PackageMetadata, len(entries))

	for _, e := range entries {
		root := MustAbsolutePath(e.Path)
		byRoot[root.String()] = PackageMetadata{
			Name:    e.Name,
			Version: e.Version,
			Root:    root,
		}
	}

	negative, err := lru.New[string, struct{}](negativeCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which negativeCacheSize never is.
		panic(err)
	}

	return &PackageMap{byRoot: byRoot, negative: negative}
}

// Lookup returns the package owning the longest matching root prefix of
// path, or ok=false if path is not inside any known package root.
func (m *PackageMap) Lookup(path AbsolutePath) (PackageMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, missed := m.negative.Get(path.String()); missed {
		return PackageMetadata{}, false
	}

	candidates := append([]AbsolutePath{path}, path.Ancestors()...)

	for _, candidate := range candidates {
		key := candidate.String()

		if _, missed := m.negative.Get(key); missed {
			break
		}

		if pkg, ok := m.byRoot[key]; ok {
			return pkg, true
		}
	}

	for _, candidate := range candidates {
		m.negative.Add(candidate.String(), struct{}{})
	}

	return PackageMetadata{}, false
}
