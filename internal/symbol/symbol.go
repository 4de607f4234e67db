// Package symbol implements the SCIP symbol formatter (spec.md §4.3): it
// turns declaration/definition identities observed by the front-end into
// canonical SCIP symbol strings, and caches them the way a real compiler
// front-end's one-pass visitor needs to (by source location, by
// declaration identity, and by (declaration, file) for namespaces that cut
// across packages).
package symbol

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
)

// Package-level symbols are emitted with placeholder package coordinates
// until the merger resolves real package metadata (original_source's
// SymbolFormatter.cc literally formats "todo-pkg"/"todo-version" the same
// way; real package names are filled in by the caller where known).
const (
	scheme         = "c"
	defaultManager = "."
	todoPackage    = "todo-pkg"
	todoVersion    = "todo-version"

	// fakeSymbolPrefix is prepended to a package-agnostic suffix to produce
	// a syntactically valid (but never-resolved) symbol string used purely
	// as a forward-declaration matching key (original_source/SymbolName.cc).
	fakeSymbolPrefix = "cxx . . $ "
)

// Suffix is a descriptor's trailing character, encoding what kind of entity
// it names (spec.md §4.3).
type Suffix byte

const (
	SuffixNamespace Suffix = '/'
	SuffixType      Suffix = '#'
	SuffixTerm      Suffix = '.'
	SuffixMethod    Suffix = '.'
	SuffixParameter Suffix = ')'
	SuffixTypeParam Suffix = ']'
	SuffixMeta      Suffix = ':'
	SuffixMacro     Suffix = '#'
)

// DescriptorBuilder is one path component of a SCIP symbol.
type DescriptorBuilder struct {
	Name          string
	Disambiguator string
	Suffix        Suffix
}

// FormatTo appends the descriptor's wire representation to sb:
// name, an optional "(disambiguator)", then the suffix byte.
func (d DescriptorBuilder) FormatTo(sb *strings.Builder) {
	sb.WriteString(d.Name)

	if d.Disambiguator != "" {
		sb.WriteByte('(')
		sb.WriteString(d.Disambiguator)
		sb.WriteByte(')')
	}

	sb.WriteByte(byte(d.Suffix))
}

// PackageCoordinates is the (manager, name, version) triple that prefixes
// every non-local symbol.
type PackageCoordinates struct {
	Manager string
	Name    string
	Version string
}

func defaultCoordinates() PackageCoordinates {
	return PackageCoordinates{Manager: defaultManager, Name: todoPackage, Version: todoVersion}
}

// FunctionKind selects the special-case naming rules spec.md §4.3 calls
// out for constructors, destructors, and operator functions.
type FunctionKind int

const (
	FunctionOrdinary FunctionKind = iota
	FunctionConstructor
	FunctionDestructor
	FunctionOperator
	FunctionConversionOperator
)

// DeclKey is an opaque, front-end-assigned identity for one declaration,
// stable for the lifetime of a single TU (the Go equivalent of caching on
// `const clang::Decl *`).
type DeclKey uint64

type namespaceCacheKey struct {
	decl DeclKey
	file pathmodel.FileID
}

type locationKey struct {
	file string
	line int
	col  int
}

// Formatter produces and caches SCIP symbol strings for one TU. Not safe
// for concurrent use; each worker owns exactly one (spec.md §3: "each
// per-worker process owns its preprocessor and AST state exclusively").
type Formatter struct {
	locationBased    map[locationKey]string
	declBased        map[DeclKey]string
	namespacePrefix  map[namespaceCacheKey]string
	fileSymbol       map[pathmodel.StableFileID]string
	anonTypeCounters map[pathmodel.FileID]uint32
	localCounters    map[pathmodel.FileID]uint32
	coords           PackageCoordinates
}

// NewFormatter returns an empty Formatter using the placeholder
// "todo-pkg"/"todo-version" package coordinates until SetPackage is called
// (spec.md §4.3: real package names are filled in by the caller where
// known — here, once the driver's package map resolves the TU's file).
func NewFormatter() *Formatter {
	return &Formatter{
		locationBased:    make(map[locationKey]string),
		declBased:        make(map[DeclKey]string),
		namespacePrefix:  make(map[namespaceCacheKey]string),
		fileSymbol:       make(map[pathmodel.StableFileID]string),
		anonTypeCounters: make(map[pathmodel.FileID]uint32),
		localCounters:    make(map[pathmodel.FileID]uint32),
		coords:           defaultCoordinates(),
	}
}

// RootContext returns the bare `<scheme> <manager> <package> <version> `
// prefix with no descriptor yet appended, used as the contextSymbol for
// entities declared directly at global/file scope (outside any namespace
// or record), where formatContextual would otherwise have nothing to glue
// the first descriptor onto.
func (f *Formatter) RootContext() string {
	return fmt.Sprintf("%s %s %s %s ", scheme, f.coords.Manager, f.coords.Name, f.coords.Version)
}

// SetPackage overrides the package coordinates used by every subsequently
// *first-formatted* (cache-miss) symbol. Already-cached symbols keep their
// original coordinates, matching the front-end's one-TU-one-package reality
// (a worker calls this once, before indexing, with the package map's
// resolution for the TU's main file).
func (f *Formatter) SetPackage(coords PackageCoordinates) {
	f.coords = coords
}

// MacroSymbol formats a macro's symbol, keyed by its definition location
// (spec.md §4.3: "keyed by definition source location").
func (f *Formatter) MacroSymbol(file string, line, col int) string {
	key := locationKey{file: file, line: line, col: col}
	if cached, ok := f.locationBased[key]; ok {
		return cached
	}

	out := fmt.Sprintf("%s %s %s %s %s:%d:%d#", scheme, f.coords.Manager, f.coords.Name, f.coords.Version, file, line, col)
	f.locationBased[key] = out

	return out
}

// FileSymbol formats the symbol naming a file as a whole, cached by its
// StableFileID.
func (f *Formatter) FileSymbol(id pathmodel.StableFileID) string {
	if cached, ok := f.fileSymbol[id]; ok {
		return cached
	}

	out := fmt.Sprintf("%s %s %s %s %s#", scheme, f.coords.Manager, f.coords.Name, f.coords.Version, id.Rel.String())
	f.fileSymbol[id] = out

	return out
}

// NamespaceSymbol formats a namespace's symbol prefix. Anonymous namespaces
// are keyed to the main file's path so they stay file-scoped yet stable
// across the TU; named namespaces use their "::"-joined qualified name
// rewritten with "/" separators. Cached by (decl, file) since a namespace's
// resolved package can depend on the usage site (spec.md §4.3).
func (f *Formatter) NamespaceSymbol(decl DeclKey, file pathmodel.FileID, qualifiedName string, anonymous bool, mainFilePath pathmodel.AbsolutePath) string {
	key := namespaceCacheKey{decl: decl, file: file}
	if cached, ok := f.namespacePrefix[key]; ok {
		return cached
	}

	var name string
	if anonymous {
		name = "$ANON/" + mainFilePath.String()
	} else {
		name = strings.ReplaceAll(qualifiedName, "::", "/")
	}

	out := fmt.Sprintf("%s %s %s %s %s/", scheme, f.coords.Manager, f.coords.Name, f.coords.Version, name)
	f.namespacePrefix[key] = out

	return out
}

// TagSymbol formats a record/enum symbol. Anonymous tags get a per-file
// counter-based placeholder name; non-anonymous tags use their own name.
// An anonymous tag declared at file or namespace scope disambiguates with a
// hash of filePath ($anonymous_type_<file-hash>_<i>#, spec.md §6), so two
// files' top-level anonymous enums don't collide on the same counter. One
// nested inside a class/struct omits the hash: its enclosing type's own
// symbol already disambiguates it ($anonymous_type_<i>#).
func (f *Formatter) TagSymbol(decl DeclKey, contextSymbol string, file pathmodel.FileID, filePath, tagName string, anonymous bool) string {
	if cached, ok := f.declBased[decl]; ok {
		return cached
	}

	name := tagName
	if anonymous {
		f.anonTypeCounters[file]++
		counter := f.anonTypeCounters[file]

		if strings.HasSuffix(contextSymbol, string(SuffixType)) {
			name = fmt.Sprintf("$anonymous_type_%d", counter)
		} else {
			name = fmt.Sprintf("$anonymous_type_%s_%d", fileHash(filePath), counter)
		}
	}

	descriptor := DescriptorBuilder{Name: name, Suffix: SuffixType}
	out := formatContextual(contextSymbol, descriptor)
	f.declBased[decl] = out

	return out
}

// fileHash derives the stable 64-bit hash embedded in file-scoped anonymous
// tag names, the same xxhash convention FunctionSignatureDisambiguator uses
// for overload disambiguators.
func fileHash(path string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(path))
}

// FunctionSignatureDisambiguator derives the stable 64-bit hash that
// distinguishes overloads sharing a name: two functions whose canonical
// signature strings are equal (same parameter types + qualifiers) get the
// same disambiguator, which is also how template instantiations with
// identical canonical parameters end up sharing one (spec.md §4.3).
func FunctionSignatureDisambiguator(canonicalSignature string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(canonicalSignature))
}

// FunctionSymbol formats a function/method symbol. name is the
// caller-resolved display name; for FunctionConversionOperator it is
// combined with targetType the way `operator TargetType()` names itself.
func (f *Formatter) FunctionSymbol(decl DeclKey, contextSymbol, name string, kind FunctionKind, targetType, canonicalSignature string) string {
	if cached, ok := f.declBased[decl]; ok {
		return cached
	}

	switch kind {
	case FunctionConversionOperator:
		name = "operator " + targetType
	case FunctionConstructor, FunctionDestructor, FunctionOperator, FunctionOrdinary:
		// name is used as-is; front-end already resolves "~Foo" / "operator+" etc.
	}

	descriptor := DescriptorBuilder{
		Name:          name,
		Disambiguator: FunctionSignatureDisambiguator(canonicalSignature),
		Suffix:        SuffixMethod,
	}
	out := formatContextual(contextSymbol, descriptor)
	f.declBased[decl] = out

	return out
}

// VariableSymbol formats a variable/field symbol, including static members
// and non-type template parameters.
func (f *Formatter) VariableSymbol(decl DeclKey, contextSymbol, name string) string {
	if cached, ok := f.declBased[decl]; ok {
		return cached
	}

	descriptor := DescriptorBuilder{Name: name, Suffix: SuffixTerm}
	out := formatContextual(contextSymbol, descriptor)
	f.declBased[decl] = out

	return out
}

// LocalSymbol returns the next "local N" symbol for file, used for
// block-local variables, lambda captures, template parameters, and
// function parameters. The counter resets per file.
func (f *Formatter) LocalSymbol(file pathmodel.FileID) string {
	n := f.localCounters[file]
	f.localCounters[file] = n + 1

	return fmt.Sprintf("local %d", n)
}

// formatContextual appends descriptor directly after contextSymbol, since
// SCIP symbols are prefix-concatenative: a namespace/type symbol already
// ends in its suffix character, and descendants are formed by gluing their
// own descriptor on afterward.
func formatContextual(contextSymbol string, descriptor DescriptorBuilder) string {
	var sb strings.Builder

	sb.WriteString(contextSymbol)
	descriptor.FormatTo(&sb)

	return sb.String()
}

// GetPackageAgnosticSuffix extracts the substring after the "$ " marker in
// a specially-formatted symbol name, enabling cross-TU forward-declaration
// matching (spec.md §4.3; grounded on original_source/SymbolName.cc).
func GetPackageAgnosticSuffix(name string) (string, bool) {
	idx := strings.Index(name, "$ ")
	if idx == -1 {
		return "", false
	}

	return name[idx+len("$ "):], true
}

// AddFakePrefix reconstructs a syntactically valid symbol string from a
// package-agnostic suffix, for use purely as a forward-declaration matching
// key (never resolved to a real symbol).
func AddFakePrefix(suffix string) string {
	return fakeSymbolPrefix + suffix
}

// StripPackageCoordinates returns sym's descriptor path with the leading
// "scheme manager package version " fields removed, i.e. the part of a
// formatted symbol that stays identical regardless of which TU's package
// resolution produced it. A forward declaration and the definition it
// refers to share this suffix even when indexed by different workers with
// different package coordinates (spec.md §4.7's forward-declaration
// resolution relies on comparing exactly this).
func StripPackageCoordinates(sym string) string {
	fields := 0

	for i := 0; i < len(sym); i++ {
		if sym[i] == ' ' {
			fields++
			if fields == 4 {
				return sym[i+1:]
			}
		}
	}

	return sym
}
