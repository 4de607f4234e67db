package frontend

import (
	"os"
	"path/filepath"
	"strings"
)

// IncludeSpec is one #include directive as parsed from source text: the
// literal spec text (without quotes/angle-brackets) and whether it used
// angle brackets (a "system" include, spec.md §6 "-isystem").
type IncludeSpec struct {
	Spec   string
	System bool
}

// SearchPath is the ordered list of directories a TU's compile command
// contributes via -I/-isystem, used to resolve #include directives the
// same way a real preprocessor would (spec.md §6: "-I/-D/-isystem/-std=
// ... affect preprocessor-visible content").
type SearchPath struct {
	Quote  []string // searched first for quoted includes, then falls back to System
	System []string
}

// SearchPathFromArgs extracts -I and -isystem directories from a cleaned
// compile command, resolving relative ones against directory (the compile
// command's "directory" field).
func SearchPathFromArgs(directory string, args []string) SearchPath {
	var sp SearchPath

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-I" && i+1 < len(args):
			i++
			sp.Quote = append(sp.Quote, resolveDir(directory, args[i]))
		case strings.HasPrefix(arg, "-I") && len(arg) > 2:
			sp.Quote = append(sp.Quote, resolveDir(directory, arg[2:]))
		case arg == "-isystem" && i+1 < len(args):
			i++
			sp.System = append(sp.System, resolveDir(directory, args[i]))
		case strings.HasPrefix(arg, "-isystem") && len(arg) > len("-isystem"):
			sp.System = append(sp.System, resolveDir(directory, arg[len("-isystem"):]))
		}
	}

	return sp
}

func resolveDir(directory, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Clean(filepath.Join(directory, dir))
}

// Resolve finds the absolute path an #include directive resolves to,
// given the directory of the including file. Quoted includes search the
// including file's own directory first, then sp.Quote, then sp.System
// (the usual GCC/Clang precedence); angle-bracket includes skip the
// including file's directory.
func (sp SearchPath) Resolve(includingFileDir string, inc IncludeSpec) (string, bool) {
	var dirs []string

	if !inc.System {
		dirs = append(dirs, includingFileDir)
		dirs = append(dirs, sp.Quote...)
	}

	dirs = append(dirs, sp.System...)

	for _, d := range dirs {
		candidate := filepath.Join(d, inc.Spec)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Clean(candidate), true
		}
	}

	return "", false
}
