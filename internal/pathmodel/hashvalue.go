// Package pathmodel holds the path and file-identity primitives shared by
// every other package in the indexer: absolute and root-relative path
// values, the stable file ids workers report back to the driver, package
// metadata, and the 64-bit fingerprint type the preprocessor hasher and
// the driver's header-ownership map both key on.
package pathmodel

import "github.com/cespare/xxhash/v2"

// HashValue is a 64-bit, order-dependent fingerprint. Fixed sequences of
// mix operations always produce the same value; it is not intended to be
// combined associatively, only accumulated in a fixed order (spec.md §3).
//
// Grounded on the teacher's use of github.com/cespare/xxhash/v2 elsewhere in
// the retrieval pack as the fast non-cryptographic hash of choice; xxhash's
// streaming Digest plays the role spec.md describes for "wyhash or
// equivalent".
type HashValue struct {
	digest *xxhash.Digest
	value  uint64
	sealed bool
}

// NewHashValue returns a fresh, unsealed hash accumulator seeded the way a
// new HashBuilder frame is seeded: empty, ready for Mix calls.
func NewHashValue() *HashValue {
	return &HashValue{digest: xxhash.New()}
}

// Mix folds bytes into the running hash. Panics if called after Seal.
func (h *HashValue) Mix(b []byte) {
	if h.sealed {
		panic("pathmodel: Mix called on a sealed HashValue")
	}

	_, _ = h.digest.Write(b) // xxhash.Digest.Write never errors.
}

// MixUint64 folds a fixed-width integer into the running hash.
func (h *HashValue) MixUint64(v uint64) {
	var buf [8]byte

	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
	buf[5] = byte(v >> 40)
	buf[6] = byte(v >> 48)
	buf[7] = byte(v >> 56)

	h.Mix(buf[:])
}

// MixString folds a string into the running hash without an intermediate
// []byte allocation.
func (h *HashValue) MixString(s string) {
	if h.sealed {
		panic("pathmodel: MixString called on a sealed HashValue")
	}

	_, _ = h.digest.WriteString(s)
}

// Seal finalizes the hash and returns its value. Idempotent.
func (h *HashValue) Seal() uint64 {
	if !h.sealed {
		h.value = h.digest.Sum64()
		h.sealed = true
	}

	return h.value
}

// Sealed reports whether Seal has already been called.
func (h *HashValue) Sealed() bool {
	return h.sealed
}

// Peek returns the hash's current value without sealing it, so callers can
// snapshot before/after values around a single Mix call (used by the
// preprocessor hasher's optional history recording).
func (h *HashValue) Peek() uint64 {
	if h.sealed {
		return h.value
	}

	return h.digest.Sum64()
}
