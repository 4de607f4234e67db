// Package frontend implements the "front-end abstraction" SPEC_FULL.md §11
// assigns to wrap a C/C++/Objective-C parser behind the preprocessor-
// callback and AST-visitor interfaces spec.md §9's Design Notes describe
// as mandatory external collaborators. It wraps
// github.com/alexaandru/go-tree-sitter-bare with the C, C++, and
// Objective-C grammars from github.com/alexaandru/go-sitter-forest, the
// same way the teacher's pkg/uast wraps tree-sitter for its DSL-driven
// parsers (pkg/uast/parser_dsl.go, pkg/uast/languages.go) — trimmed to the
// three C-family grammars and to the node categories spec.md §4.2/§4.4
// name, since this module's AST consumer is hand-written (the indexer),
// not a generic DSL mapping engine.
//
// Tree-sitter has no preprocessor: it parses directive syntax
// (`#include`, `#define`, `#ifdef`, ...) as nodes without expanding macros
// or conditionally compiling branches. That is a deliberate, documented
// substitution for the "C/C++ front-end library" spec.md treats as an
// external given (see DESIGN.md) — good enough to fingerprint a file's
// preprocessor-visible *directives* and to walk every `#ifdef`/`#ifndef`
// branch unconditionally, but it cannot expand a macro use `FOO(x)` into
// its replacement text, and it cannot discard a branch `#if 0 ... #endif`
// the way a real preprocessor would.
package frontend

import (
	"strings"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/c"
	"github.com/alexaandru/go-sitter-forest/cpp"
	"github.com/alexaandru/go-sitter-forest/objc"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Language selects which tree-sitter grammar a translation unit or header
// parses under.
type Language int

const (
	LangC Language = iota
	LangCPP
	LangObjC
)

// String renders the language the way scip.Document.Language expects
// (spec.md §9 Open Questions: the source sets this unconditionally to
// "CPP"; this module tracks the real language, "C" or "ObjectiveC", and
// renders LangCPP and any unrecognized value as "CPP").
func (l Language) String() string {
	switch l {
	case LangC:
		return "C"
	case LangObjC:
		return "ObjectiveC"
	case LangCPP:
		return "CPP"
	default:
		return "CPP"
	}
}

var languageCache = map[Language]*sitter.Language{}

func languageFor(l Language) *sitter.Language {
	if cached, ok := languageCache[l]; ok {
		return cached
	}

	var raw unsafe.Pointer

	switch l {
	case LangC:
		raw = c.GetLanguage()
	case LangObjC:
		raw = objc.GetLanguage()
	case LangCPP:
		raw = cpp.GetLanguage()
	default:
		raw = cpp.GetLanguage()
	}

	lang := sitter.NewLanguage(raw)
	languageCache[l] = lang

	return lang
}

// DetectLanguage infers the grammar from the compile command's `-x` flag
// (if present) or the main file's extension, the way
// original_source/CompilationDatabase.cc resolves a TU's language (spec.md
// §11: "fixed to C/C++/Objective-C by the compilation database's file
// extension and -x flag").
func DetectLanguage(mainFile string, args []string) Language {
	for i, a := range args {
		if a == "-x" && i+1 < len(args) {
			return languageFromDashX(args[i+1])
		}

		if rest, ok := strings.CutPrefix(a, "-x"); ok && rest != "" {
			return languageFromDashX(rest)
		}
	}

	return languageFromExtension(mainFile)
}

func languageFromDashX(v string) Language {
	switch v {
	case "c", "c-header":
		return LangC
	case "objective-c", "objective-c-header":
		return LangObjC
	default:
		return LangCPP
	}
}

func languageFromExtension(path string) Language {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return LangCPP
	}

	switch strings.ToLower(path[idx+1:]) {
	case "c":
		return LangC
	case "m", "mm":
		return LangObjC
	default:
		return LangCPP
	}
}
