package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguageFromExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LangC, DetectLanguage("/src/foo.c", nil))
	assert.Equal(t, LangCPP, DetectLanguage("/src/foo.cc", nil))
	assert.Equal(t, LangCPP, DetectLanguage("/src/foo.hpp", nil))
	assert.Equal(t, LangObjC, DetectLanguage("/src/foo.m", nil))
	assert.Equal(t, LangObjC, DetectLanguage("/src/foo.mm", nil))
}

func TestDetectLanguageFromDashX(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LangC, DetectLanguage("/src/foo.cc", []string{"-x", "c"}))
	assert.Equal(t, LangObjC, DetectLanguage("/src/foo.c", []string{"-xobjective-c"}))
	assert.Equal(t, LangCPP, DetectLanguage("/src/foo.c", []string{"-x", "c++"}))
}

func TestLanguageStringMatchesSCIPConvention(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "C", LangC.String())
	assert.Equal(t, "ObjectiveC", LangObjC.String())
	assert.Equal(t, "CPP", LangCPP.String())
}

func TestLanguageForIsCachedPerLanguage(t *testing.T) {
	t.Parallel()

	a := languageFor(LangC)
	b := languageFor(LangC)
	assert.Same(t, a, b)

	cpp := languageFor(LangCPP)
	assert.NotSame(t, a, cpp)
}
