package pathmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scipcxx/internal/compdb"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

func TestPackageMapLongestPrefix(t *testing.T) {
	t.Parallel()

	pm := pathmodel.NewPackageMap([]compdb.PackageMapEntry{
		{Path: "/root/vendor", Name: "outer", Version: "1.0.0"},
		{Path: "/root/vendor/nested", Name: "inner", Version: "2.0.0"},
	})

	pkg, ok := pm.Lookup(pathmodel.MustAbsolutePath("/root/vendor/nested/a.h"))
	require.True(t, ok)
	assert.Equal(t, "inner", pkg.Name)

	pkg, ok = pm.Lookup(pathmodel.MustAbsolutePath("/root/vendor/other/a.h"))
	require.True(t, ok)
	assert.Equal(t, "outer", pkg.Name)

	_, ok = pm.Lookup(pathmodel.MustAbsolutePath("/elsewhere/a.h"))
	assert.False(t, ok)
}

func TestPackageMapCachesNegatives(t *testing.T) {
	t.Parallel()

	pm := pathmodel.NewPackageMap([]compdb.PackageMapEntry{
		{Path: "/root/vendor", Name: "outer", Version: "1.0.0"},
	})

	miss := pathmodel.MustAbsolutePath("/elsewhere/deep/a.h")

	_, ok := pm.Lookup(miss)
	assert.False(t, ok)

	// Second lookup should short-circuit on the cached negative prefix and
	// still report a miss.
	_, ok = pm.Lookup(miss)
	assert.False(t, ok)
}
