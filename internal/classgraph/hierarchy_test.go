package classgraph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHierarchyDirectAndAllAncestorsDiamond(t *testing.T) {
	t.Parallel()

	h := NewHierarchy()
	// Diamond: D -> B, D -> C, B -> A, C -> A.
	h.AddBase("D", "B")
	h.AddBase("D", "C")
	h.AddBase("B", "A")
	h.AddBase("C", "A")

	direct := h.DirectBases("D")
	sort.Strings(direct)
	assert.Equal(t, []string{"B", "C"}, direct)

	all := h.AllAncestors("D")
	sort.Strings(all)
	assert.Equal(t, []string{"A", "B", "C"}, all)
}

func TestHierarchyOverrideChainTransitive(t *testing.T) {
	t.Parallel()

	h := NewHierarchy()
	h.AddOverride("Derived#f().", "Mid#f().")
	h.AddOverride("Mid#f().", "Base#f().")

	chain := h.OverrideChain("Derived#f().")
	sort.Strings(chain)
	assert.Equal(t, []string{"Base#f().", "Mid#f()."}, chain)
}

func TestHierarchyNoAncestorsForLeaf(t *testing.T) {
	t.Parallel()

	h := NewHierarchy()
	h.AddBase("D", "B")

	assert.Empty(t, h.AllAncestors("B"))
}
