package prehash

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// EmitHistory writes the recorded mix-operation history for path as YAML,
// one document per call, the "debugging non-deterministic hashes" affordance
// spec.md §4.2 describes. Writing is a no-op (nil error) if path has no
// recorded history, which is the common case when history recording is
// disabled.
func (r FlushResult) EmitHistory(w io.Writer, path string) error {
	rows, ok := r.Histories[path]
	if !ok {
		return nil
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()

	if err := enc.Encode(map[string][]HistoryRow{path: rows}); err != nil {
		return fmt.Errorf("prehash: encode history for %s: %w", path, err)
	}

	return nil
}
