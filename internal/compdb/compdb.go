package compdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedCompdb is returned when a compilation-database entry is
// missing a required key or has the wrong JSON shape.
var ErrMalformedCompdb = errors.New("malformed compilation database entry")

// Command is one translation unit's compile command, normalized from either
// the `command` (shell string) or `arguments` (array) form.
type Command struct {
	Directory string
	File      string
	Output    string
	Arguments []string
}

// rawEntry mirrors the JSON shape of a single compilation database object.
type rawEntry struct {
	Directory string          `json:"directory"`
	File      string          `json:"file"`
	Output    string          `json:"output"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
}

// StreamCommands decodes a JSON array of compilation-database entries one at
// a time, calling fn for each. It stops and returns fn's error unmodified if
// fn returns one, without decoding the remainder of the array. The parser
// itself is a thin affordance around encoding/json's token streaming; the
// module's own concern starts at argument cleaning (CleanArguments) and the
// recognized-key extraction below, which the spec.md component table treats
// as the core's responsibility.
func StreamCommands(r io.Reader, fn func(Command) error) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read compdb opening token: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("%w: expected top-level JSON array", ErrMalformedCompdb)
	}

	for dec.More() {
		var raw rawEntry

		if decErr := dec.Decode(&raw); decErr != nil {
			return fmt.Errorf("decode compdb entry: %w", decErr)
		}

		cmd, convErr := normalizeEntry(raw)
		if convErr != nil {
			return convErr
		}

		if fnErr := fn(cmd); fnErr != nil {
			return fnErr
		}
	}

	return nil
}

func normalizeEntry(raw rawEntry) (Command, error) {
	if raw.Directory == "" || raw.File == "" {
		return Command{}, fmt.Errorf("%w: missing directory or file", ErrMalformedCompdb)
	}

	var args []string

	switch {
	case len(raw.Arguments) > 0:
		if err := json.Unmarshal(raw.Arguments, &args); err != nil {
			return Command{}, fmt.Errorf("%w: arguments is not a string array: %w", ErrMalformedCompdb, err)
		}
	case raw.Command != "": //nolint:revive // clearer as a guard than nesting
		var err error

		args, err = splitShellWords(raw.Command)
		if err != nil {
			return Command{}, fmt.Errorf("%w: unparsable command: %w", ErrMalformedCompdb, err)
		}
	default:
		return Command{}, fmt.Errorf("%w: neither command nor arguments present", ErrMalformedCompdb)
	}

	return Command{
		Directory: raw.Directory,
		File:      raw.File,
		Output:    raw.Output,
		Arguments: CleanArguments(args),
	}, nil
}

// archSpecificPrefixes are GCC/Clang flags that pin code generation to a
// specific CPU and have no bearing on preprocessor-visible content.
var archSpecificPrefixes = []string{
	"-march=", "-mcpu=", "-mtune=", "-mfix-", "-fplugin=",
}

// CleanArguments drops compiler flags the tree-sitter front-end can't honor
// (architecture tuning, compiler plugins, response files) while preserving
// everything that affects preprocessor-visible content (-I, -D, -isystem,
// -std=, -include). Grounded on spec.md §6/§9 ("CommandLineCleaner.cc") and
// supplemented per SPEC_FULL.md §12.2.
func CleanArguments(args []string) []string {
	cleaned := make([]string, 0, len(args))

	for _, arg := range args {
		if isArchSpecific(arg) || isResponseFileOnly(arg) {
			continue
		}

		cleaned = append(cleaned, arg)
	}

	return cleaned
}

func isArchSpecific(arg string) bool {
	for _, prefix := range archSpecificPrefixes {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}

	return false
}

// isResponseFileOnly reports whether arg is a bare `@file` response-file
// reference the front-end can't expand on its own.
func isResponseFileOnly(arg string) bool {
	return strings.HasPrefix(arg, "@")
}
