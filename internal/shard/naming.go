package shard

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// FileName returns the shard file name for one worker's completed job,
// named by worker id and job id in the temporary directory (spec.md §6),
// plus a random token so a respawned worker re-using the same worker id
// and a requeued job re-using... a fresh job id never collides with a
// shard still being read by the merger from an earlier, crashed attempt.
func FileName(workerID, jobID uint64) string {
	return fmt.Sprintf("w%d-j%d-%s.shard", workerID, jobID, uuid.NewString())
}

// Path joins dir and a freshly named shard file for (workerID, jobID).
func Path(dir string, workerID, jobID uint64) string {
	return filepath.Join(dir, FileName(workerID, jobID))
}
