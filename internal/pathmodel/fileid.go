package pathmodel

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/scipcxx/internal/rbtree"
)

// ErrInvariant is returned when a FileMetadata constructor's invariants
// (spec.md §3) are violated.
var ErrInvariant = errors.New("pathmodel: invariant violation")

// FileID is the front-end's opaque per-TU file identifier. The front-end
// wrapper assigns these densely starting at zero as it discovers files,
// which keeps FileIdMap's backing rbtree.Allocator compact.
type FileID uint32

// PackageMetadata names the package a non-project file belongs to.
type PackageMetadata struct {
	Name    string
	Version string
	Root    AbsolutePath
	IsMain  bool
}

// StableFileID is a root-relative path plus the two booleans that make a
// file's identity stable across TUs (spec.md §3).
type StableFileID struct {
	Rel       RootRelativePath
	InProject bool
	Synthetic bool
}

// FileMetadata is everything known about one file observed during a TU.
type FileMetadata struct {
	Original AbsolutePath
	ID       StableFileID
	Package  *PackageMetadata
}

// NewFileMetadata validates spec.md §3's three invariants before
// construction:
//   - an in-project file is never synthetic
//   - a non-in-project, non-synthetic file must have package information
//   - a synthetic file must not have package information
func NewFileMetadata(original AbsolutePath, id StableFileID, pkg *PackageMetadata) (FileMetadata, error) {
	if id.InProject && id.Synthetic {
		return FileMetadata{}, fmt.Errorf("%w: in-project file %s is synthetic", ErrInvariant, original)
	}

	if id.Synthetic && pkg != nil {
		return FileMetadata{}, fmt.Errorf("%w: synthetic file %s has package info", ErrInvariant, original)
	}

	if !id.InProject && !id.Synthetic && pkg == nil {
		return FileMetadata{}, fmt.Errorf("%w: external file %s has no package info", ErrInvariant, original)
	}

	return FileMetadata{Original: original, ID: id, Package: pkg}, nil
}

// FileIDMap maps the front-end's opaque per-TU file identifiers to
// FileMetadata. Backed by internal/rbtree's ordered uint32 allocator so
// iteration order is deterministic, which matters for reproducible shard
// output; the metadata itself lives in a parallel slice since rbtree values
// are themselves uint32.
type FileIDMap struct {
	index *rbtree.RBTree
	meta  []FileMetadata
}

// NewFileIDMap returns an empty map.
func NewFileIDMap() *FileIDMap {
	return &FileIDMap{index: rbtree.NewRBTree(rbtree.NewAllocator())}
}

// Insert records metadata for id, overwriting any prior entry.
func (m *FileIDMap) Insert(id FileID, meta FileMetadata) {
	if existing := m.index.Get(uint32(id)); existing != nil {
		m.meta[*existing] = meta

		return
	}

	slot := uint32(len(m.meta))
	m.meta = append(m.meta, meta)
	m.index.Insert(rbtree.Item{Key: uint32(id), Value: slot})
}

// Lookup returns the metadata for id, if any.
func (m *FileIDMap) Lookup(id FileID) (FileMetadata, bool) {
	slot := m.index.Get(uint32(id))
	if slot == nil {
		return FileMetadata{}, false
	}

	return m.meta[*slot], true
}

// Len reports how many distinct file ids are recorded.
func (m *FileIDMap) Len() int {
	return len(m.meta)
}

// ClangIDLookupMap maps (absolute path, HashValue) to a file identifier, the
// inverse direction from FileIDMap. A path-only lookup (no hash) returns an
// arbitrary one of the file ids recorded for that path; spec.md §4.1 says
// this is fine because it is only used for include-edge recording, which
// doesn't care which of an ill-behaved header's variants it lands on.
//
// Invariant upheld by construction: every inner map, once created for a
// path, is never emptied back out — entries are only ever added.
type ClangIDLookupMap struct {
	byPathAndHash map[string]map[uint64]FileID
	anyByPath     map[string]FileID
}

// NewClangIDLookupMap returns an empty map.
func NewClangIDLookupMap() *ClangIDLookupMap {
	return &ClangIDLookupMap{
		byPathAndHash: make(map[string]map[uint64]FileID),
		anyByPath:     make(map[string]FileID),
	}
}

// Insert records that path, as hashed to hash, was assigned id.
func (m *ClangIDLookupMap) Insert(path AbsolutePath, hash uint64, id FileID) {
	key := path.String()

	inner, ok := m.byPathAndHash[key]
	if !ok {
		inner = make(map[uint64]FileID)
		m.byPathAndHash[key] = inner
	}

	inner[hash] = id

	if _, ok := m.anyByPath[key]; !ok {
		m.anyByPath[key] = id
	}
}

// Lookup returns the file id previously recorded for (path, hash).
func (m *ClangIDLookupMap) Lookup(path AbsolutePath, hash uint64) (FileID, bool) {
	inner, ok := m.byPathAndHash[path.String()]
	if !ok {
		return 0, false
	}

	id, ok := inner[hash]

	return id, ok
}

// LookupAny returns an arbitrary file id recorded for path, ignoring hash.
func (m *ClangIDLookupMap) LookupAny(path AbsolutePath) (FileID, bool) {
	id, ok := m.anyByPath[path.String()]

	return id, ok
}

// Hashes returns every hash recorded for path, in no particular order.
// Callers that need a stable order (e.g. reporting a header's hashes
// across a driver/worker boundary) sort the result themselves.
func (m *ClangIDLookupMap) Hashes(path AbsolutePath) []uint64 {
	inner, ok := m.byPathAndHash[path.String()]
	if !ok {
		return nil
	}

	out := make([]uint64, 0, len(inner))
	for h := range inner {
		out = append(out, h)
	}

	return out
}
