package pathmodel

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotAbsolute is returned by TryAbsolutePath when given a relative path.
var ErrNotAbsolute = errors.New("pathmodel: path is not absolute")

// ErrEmptyPath is returned wherever a path abstraction requires a non-empty
// value (spec.md §3: "non-empty path values").
var ErrEmptyPath = errors.New("pathmodel: empty path")

// ErrNotPrefixed is returned by AbsolutePath.MakeRelative when the receiver
// is not a path-component-respecting prefix of the argument.
var ErrNotPrefixed = errors.New("pathmodel: not a prefix, or prefix split mid-component")

// Root names one of the three roots a RootRelativePath can be relative to.
type Root int

const (
	// RootProject is the repository being indexed.
	RootProject Root = iota
	// RootBuild is where generated files live, often under the project root.
	RootBuild
	// RootExternal is conceptual: it synthesizes fake paths for files that
	// live outside both the project and build roots.
	RootExternal
)

// String renders the root the way diagnostics and synthesized paths do.
func (r Root) String() string {
	switch r {
	case RootProject:
		return "project"
	case RootBuild:
		return "build"
	case RootExternal:
		return "external"
	default:
		return fmt.Sprintf("Root(%d)", int(r))
	}
}

// AbsolutePath is an owned, lexically normalized absolute path. The zero
// value is not valid; construct via TryAbsolutePath.
type AbsolutePath struct {
	value string
}

// TryAbsolutePath normalizes and validates an absolute path (spec.md §4.1
// tryFrom(string)).
func TryAbsolutePath(path string) (AbsolutePath, error) {
	if path == "" {
		return AbsolutePath{}, ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return AbsolutePath{}, fmt.Errorf("%w: %q", ErrNotAbsolute, path)
	}

	clean := filepath.Clean(path)

	return AbsolutePath{value: clean}, nil
}

// MustAbsolutePath panics on invalid input; reserved for compile-time-known
// synthesized paths (e.g. the front-end's built-in magic buffer name).
func MustAbsolutePath(path string) AbsolutePath {
	p, err := TryAbsolutePath(path)
	if err != nil {
		panic(err)
	}

	return p
}

// String returns the normalized absolute path.
func (p AbsolutePath) String() string {
	return p.value
}

// IsZero reports whether p is the unconstructed zero value.
func (p AbsolutePath) IsZero() bool {
	return p.value == ""
}

// FileName returns the final path component. Errors if empty (root "/").
func (p AbsolutePath) FileName() (string, error) {
	name := filepath.Base(p.value)
	if name == "" || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: path %q has no file name", ErrEmptyPath, p.value)
	}

	return name, nil
}

// MakeRelative computes self's relative path to longer, failing unless self
// is a path-component-respecting prefix of longer (spec.md §4.1
// makeRelative(longerPath)).
func (p AbsolutePath) MakeRelative(longer AbsolutePath) (string, error) {
	rel, err := filepath.Rel(p.value, longer.value)
	if err != nil {
		return "", fmt.Errorf("%w: %s vs %s: %w", ErrNotPrefixed, p.value, longer.value, err)
	}

	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is not an ancestor of %s", ErrNotPrefixed, p.value, longer.value)
	}

	return filepath.ToSlash(rel), nil
}

// Ancestors returns every prefix of p from the immediate parent up to the
// filesystem root, used for longest-prefix package-map lookup (spec.md
// §4.1).
func (p AbsolutePath) Ancestors() []AbsolutePath {
	var out []AbsolutePath

	cur := p.value
	for {
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}

		out = append(out, AbsolutePath{value: parent})
		cur = parent
	}

	return out
}

// RootRelativePath is a path relative to one of the three named roots.
type RootRelativePath struct {
	Root Root
	Rel  string // slash-separated, never empty, never "."
}

// NewRootRelativePath constructs a root-relative path, requiring a
// non-empty, normalized relative component.
func NewRootRelativePath(root Root, rel string) (RootRelativePath, error) {
	if rel == "" || rel == "." {
		return RootRelativePath{}, ErrEmptyPath
	}

	clean := filepath.ToSlash(filepath.Clean(rel))
	if strings.HasPrefix(clean, "../") || clean == ".." {
		return RootRelativePath{}, fmt.Errorf("%w: %q escapes its root", ErrNotPrefixed, rel)
	}

	return RootRelativePath{Root: root, Rel: clean}, nil
}

// String renders "<root>:<rel>", used in diagnostics and synthesized ids.
func (p RootRelativePath) String() string {
	return p.Root.String() + ":" + p.Rel
}
