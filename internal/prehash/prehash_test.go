package prehash_test

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/prehash"
)

func TestHasherWellBehavedHeader(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(nil)

	main := pathmodel.MustAbsolutePath("/proj/main.cc")
	header := pathmodel.MustAbsolutePath("/proj/a.h")

	h.EnterFile(0, main, false)
	h.EnterFile(1, header, false)
	h.ExitFile()
	h.ExitFile()

	result := h.Flush()

	assert.Contains(t, pathStrings(result.WellBehaved), header.String())
	assert.Contains(t, pathStrings(result.WellBehaved), main.String())
	assert.Empty(t, result.IllBehaved)
}

func TestHasherIllBehavedHeaderTwoDistinctHashes(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(nil)
	header := pathmodel.MustAbsolutePath("/proj/a.h")

	// First TU inclusion: header sees macro FOO defined.
	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main1.cc"), false)
	h.EnterFile(1, header, false)
	h.MacroEvent(prehash.MacroExpands, "FOO", 1, 1)
	h.ExitFile()
	h.ExitFile()

	// Second TU inclusion: header sees no macro expansion, so its
	// transcript (and therefore hash) differs.
	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main2.cc"), false)
	h.EnterFile(2, header, false)
	h.ExitFile()
	h.ExitFile()

	result := h.Flush()

	assert.Contains(t, pathStrings(result.IllBehaved), header.String())
	assert.NotContains(t, pathStrings(result.WellBehaved), header.String())
}

func TestHasherInvalidFramePoppedWithoutHashing(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(nil)

	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main.cc"), false)
	h.EnterFile(1, pathmodel.AbsolutePath{}, true) // imaginary buffer
	h.ExitFile()
	h.ExitFile()

	result := h.Flush()
	assert.Len(t, result.WellBehaved, 1)
}

func TestHasherUnbalancedFramesToleratedOnFlush(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(nil)

	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main.cc"), false)
	h.EnterFile(1, pathmodel.MustAbsolutePath("/proj/a.h"), false)
	// No matching ExitFile calls: simulates malformed/reduced input.

	result := h.Flush()
	assert.Len(t, result.WellBehaved, 2)
}

func TestHasherMacroAndIncludeRecording(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(nil)

	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main.cc"), false)
	h.MacroEvent(prehash.MacroDefined, "FOO", 3, 9)
	h.InclusionDirective(pathmodel.MustAbsolutePath("/proj/a.h"))
	h.ExitFile()

	result := h.Flush()

	require.Len(t, result.Macros, 1)
	assert.Equal(t, "FOO", result.Macros[0].Name)
	assert.Equal(t, prehash.MacroDefined, result.Macros[0].Kind)

	require.Len(t, result.Includes, 1)
	assert.Equal(t, "/proj/a.h", result.Includes[0].To.String())
}

func TestHasherHistoryRecording(t *testing.T) {
	t.Parallel()

	h := prehash.NewHasher(regexp.MustCompile(`a\.h$`))

	h.EnterFile(0, pathmodel.MustAbsolutePath("/proj/main.cc"), false)
	h.EnterFile(1, pathmodel.MustAbsolutePath("/proj/a.h"), false)
	h.MacroEvent(prehash.MacroExpands, "FOO", 1, 1)
	h.ExitFile()
	h.ExitFile()

	result := h.Flush()

	rows, ok := result.Histories["/proj/a.h"]
	require.True(t, ok)
	require.NotEmpty(t, rows)
	assert.Contains(t, rows[0].Context, "macro:FOO")

	var buf bytes.Buffer
	require.NoError(t, result.EmitHistory(&buf, "/proj/a.h"))
	assert.Contains(t, buf.String(), "before:")
}

func pathStrings(paths []pathmodel.AbsolutePath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}

	return out
}
