package compdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPackageMap is returned when the package map file fails schema
// validation or contains an entry whose name/version doesn't match the
// required character class.
var ErrInvalidPackageMap = errors.New("invalid package map")

// packageMapSchema validates the shape of --package-map before any entry is
// interpreted, giving a precise "Configuration error" (spec.md §7) instead
// of a generic unmarshal failure.
const packageMapSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["path", "package"],
    "properties": {
      "path": {"type": "string", "minLength": 1},
      "package": {"type": "string", "minLength": 1}
    },
    "additionalProperties": false
  }
}`

// packageNameVersion matches the `name@version` grammar of spec.md §6.
var packageNameVersion = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z0-9._-]+)$`)

// PackageMapEntry is one parsed row of a --package-map file: an absolute,
// trailing-separator-stripped directory and its (name, version) pair.
type PackageMapEntry struct {
	Path    string
	Name    string
	Version string
}

// LoadPackageMap reads and validates a --package-map JSON file and
// normalizes every path entry to an absolute, separator-stripped directory.
func LoadPackageMap(path string) ([]PackageMapEntry, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied CLI flag.
	if err != nil {
		return nil, fmt.Errorf("read package map %s: %w", path, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(packageMapSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackageMap, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPackageMap, result.Errors()[0].String())
	}

	var rows []struct {
		Path    string `json:"path"`
		Package string `json:"package"`
	}

	if unmarshalErr := json.Unmarshal(raw, &rows); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackageMap, unmarshalErr)
	}

	entries := make([]PackageMapEntry, 0, len(rows))

	for _, row := range rows {
		matches := packageNameVersion.FindStringSubmatch(row.Package)
		if matches == nil {
			return nil, fmt.Errorf("%w: package %q does not match name@version", ErrInvalidPackageMap, row.Package)
		}

		abs, absErr := filepath.Abs(row.Path)
		if absErr != nil {
			return nil, fmt.Errorf("%w: resolve path %q: %w", ErrInvalidPackageMap, row.Path, absErr)
		}

		entries = append(entries, PackageMapEntry{
			Path:    strings.TrimRight(filepath.Clean(abs), string(filepath.Separator)),
			Name:    matches[1],
			Version: matches[2],
		})
	}

	return entries, nil
}
