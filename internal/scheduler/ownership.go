package scheduler

import (
	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// headerKey identifies one (path, preprocessor-transcript hash) pair — a
// single well-behaved header reports one hash; an ill-behaved one reports
// several, each arbitrated independently (spec.md §4.2, §4.5).
type headerKey struct {
	path string
	hash uint64
}

// Assignment records which worker was chosen to emit a shared header.
type Assignment struct {
	Worker ipc.WorkerID
}

// HeaderOwnership arbitrates, for every (path, hash) pair observed across
// every worker's Phase A report, which single worker emits that header's
// document (spec.md §4.5 "Header ownership arbitration": first worker to
// report a given (path, hash) wins it; later reporters are told to skip
// it in their EmitIndex job).
type HeaderOwnership struct {
	owners map[headerKey]Assignment
}

// NewHeaderOwnership returns an empty arbitration table.
func NewHeaderOwnership() *HeaderOwnership {
	return &HeaderOwnership{owners: make(map[headerKey]Assignment)}
}

// Claim registers worker as the reporter of (path, hash) and returns
// whether worker is the chosen emitter — true the first time any worker
// claims this pair, false for every subsequent claimant.
func (h *HeaderOwnership) Claim(path string, hash uint64, worker ipc.WorkerID) bool {
	key := headerKey{path: path, hash: hash}

	if existing, ok := h.owners[key]; ok {
		return existing.Worker == worker
	}

	h.owners[key] = Assignment{Worker: worker}

	return true
}

// Reassign hands ownership of every (path, hash) pair currently owned by
// dead to instead, used when a worker is killed after winning ownership
// but before finishing its EmitIndex job (spec.md §8: a respawned worker
// must not silently drop headers it had already won).
func (h *HeaderOwnership) Reassign(dead, instead ipc.WorkerID) {
	for key, a := range h.owners {
		if a.Worker == dead {
			h.owners[key] = Assignment{Worker: instead}
		}
	}
}

// Owned returns every (path, hash) pair worker is the chosen emitter for,
// the payload for that worker's EmitIndex job.
func (h *HeaderOwnership) Owned(worker ipc.WorkerID) []ipc.AssignedFile {
	var out []ipc.AssignedFile

	for key, a := range h.owners {
		if a.Worker == worker {
			out = append(out, ipc.AssignedFile{Path: key.path, Hash: key.hash})
		}
	}

	return out
}
