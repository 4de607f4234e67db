package pathmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

func TestHashValueOrderDependent(t *testing.T) {
	t.Parallel()

	a := pathmodel.NewHashValue()
	a.MixString("foo")
	a.MixString("bar")

	b := pathmodel.NewHashValue()
	b.MixString("bar")
	b.MixString("foo")

	assert.NotEqual(t, a.Seal(), b.Seal(), "mix order must affect the result")
}

func TestHashValueDeterministic(t *testing.T) {
	t.Parallel()

	a := pathmodel.NewHashValue()
	a.MixString("a.h")
	a.MixUint64(42)

	b := pathmodel.NewHashValue()
	b.MixString("a.h")
	b.MixUint64(42)

	assert.Equal(t, a.Seal(), b.Seal())
}

func TestHashValueSealIdempotent(t *testing.T) {
	t.Parallel()

	h := pathmodel.NewHashValue()
	h.MixString("x")

	first := h.Seal()
	second := h.Seal()

	assert.Equal(t, first, second)
	assert.True(t, h.Sealed())
}

func TestHashValueMixAfterSealPanics(t *testing.T) {
	t.Parallel()

	h := pathmodel.NewHashValue()
	h.Seal()

	assert.Panics(t, func() {
		h.Mix([]byte("too late"))
	})
}
