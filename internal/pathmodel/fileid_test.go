package pathmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

func TestNewFileMetadataInvariants(t *testing.T) {
	t.Parallel()

	original := pathmodel.MustAbsolutePath("/proj/a.cc")
	rel, err := pathmodel.NewRootRelativePath(pathmodel.RootProject, "a.cc")
	require.NoError(t, err)

	t.Run("in-project synthetic is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := pathmodel.NewFileMetadata(original, pathmodel.StableFileID{
			Rel: rel, InProject: true, Synthetic: true,
		}, nil)
		require.ErrorIs(t, err, pathmodel.ErrInvariant)
	})

	t.Run("synthetic with package is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := pathmodel.NewFileMetadata(original, pathmodel.StableFileID{
			Rel: rel, Synthetic: true,
		}, &pathmodel.PackageMetadata{Name: "x"})
		require.ErrorIs(t, err, pathmodel.ErrInvariant)
	})

	t.Run("external without package is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := pathmodel.NewFileMetadata(original, pathmodel.StableFileID{Rel: rel}, nil)
		require.ErrorIs(t, err, pathmodel.ErrInvariant)
	})

	t.Run("in-project non-synthetic is accepted", func(t *testing.T) {
		t.Parallel()

		meta, err := pathmodel.NewFileMetadata(original, pathmodel.StableFileID{
			Rel: rel, InProject: true,
		}, nil)
		require.NoError(t, err)
		assert.True(t, meta.ID.InProject)
	})
}

func TestFileIDMap(t *testing.T) {
	t.Parallel()

	m := pathmodel.NewFileIDMap()

	rel, err := pathmodel.NewRootRelativePath(pathmodel.RootProject, "a.cc")
	require.NoError(t, err)

	meta, err := pathmodel.NewFileMetadata(
		pathmodel.MustAbsolutePath("/proj/a.cc"),
		pathmodel.StableFileID{Rel: rel, InProject: true},
		nil,
	)
	require.NoError(t, err)

	_, ok := m.Lookup(0)
	assert.False(t, ok)

	m.Insert(0, meta)

	got, ok := m.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, meta, got)
	assert.Equal(t, 1, m.Len())

	updated, err := pathmodel.NewFileMetadata(
		pathmodel.MustAbsolutePath("/proj/b.cc"),
		pathmodel.StableFileID{Rel: rel, InProject: true},
		nil,
	)
	require.NoError(t, err)

	m.Insert(0, updated)
	assert.Equal(t, 1, m.Len(), "re-inserting the same id must overwrite, not grow")

	got, ok = m.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, updated, got)
}

func TestClangIDLookupMap(t *testing.T) {
	t.Parallel()

	m := pathmodel.NewClangIDLookupMap()
	path := pathmodel.MustAbsolutePath("/proj/a.h")

	_, ok := m.Lookup(path, 1)
	assert.False(t, ok)

	m.Insert(path, 1, 10)
	m.Insert(path, 2, 20)

	id, ok := m.Lookup(path, 1)
	require.True(t, ok)
	assert.Equal(t, pathmodel.FileID(10), id)

	id, ok = m.Lookup(path, 2)
	require.True(t, ok)
	assert.Equal(t, pathmodel.FileID(20), id)

	anyID, ok := m.LookupAny(path)
	require.True(t, ok)
	assert.Equal(t, pathmodel.FileID(10), anyID, "LookupAny returns the first-inserted id")
}
