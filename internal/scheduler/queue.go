// Package scheduler implements the driver's job queue and main dispatch
// loop (spec.md §4.5): it hands SemanticAnalysis and EmitIndex jobs to a
// fixed pool of worker subprocesses, arbitrates which worker owns each
// shared header, recovers from hung or crashed workers by respawning them,
// and reports progress the way the teacher's memory watchdog in
// cmd/codefang/main.go logs a steady drumbeat of status lines.
package scheduler

import (
	"time"

	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// WorkerStatus is a worker handle's availability.
type WorkerStatus int

const (
	WorkerFree WorkerStatus = iota
	WorkerBusy
)

// WorkerHandle tracks one worker subprocess's liveness and current job.
type WorkerHandle struct {
	ID         ipc.WorkerID
	Status     WorkerStatus
	CurrentJob ipc.JobID
	Since      time.Time
	Proc       WorkerProcess
}

// WorkerProcess is the subset of a spawned worker subprocess the scheduler
// drives directly: sending one request, and terminating it on timeout.
// internal/worker's Spawn returns a concrete implementation wired to an
// os/exec.Cmd's stdin/stdout pipes.
type WorkerProcess interface {
	Send(req ipc.Request) error
	Kill() error
	Wait() error
}

// job tracks one unit of work from enqueue through completion.
type job struct {
	id      ipc.JobID
	request ipc.Job
	// onResult is invoked with the worker that completed this job and its
	// result payload; it returns any follow-up jobs to enqueue (spec.md
	// §4.5: a completed SemanticAnalysis job's result determines the
	// EmitIndex job for the same worker).
	onResult func(worker ipc.WorkerID, result ipc.Result) []FollowUp
}

// FollowUp is a job to enqueue in reaction to a completed job, optionally
// pinned to a specific worker (spec.md §4.5 "the driver enqueues an
// EmitIndex job for the same worker" — Phase B never goes back through the
// generic free-worker pool).
type FollowUp struct {
	Job          ipc.Job
	PinnedWorker ipc.WorkerID
	HasPinned    bool
	OnResult     func(worker ipc.WorkerID, result ipc.Result) []FollowUp
}

// Queue holds pending and in-flight jobs plus the worker pool, the state
// spec.md §4.5's five-step loop operates on each iteration.
type Queue struct {
	nextJobID      ipc.JobID
	pending        []job
	pinned         []pinnedJob
	wip            map[ipc.JobID]wipEntry
	workers        map[ipc.WorkerID]*WorkerHandle
	freeOrder      []ipc.WorkerID
	completedCount int
}

type wipEntry struct {
	job    job
	worker ipc.WorkerID
}

// NewQueue returns an empty Queue seeded with workers.
func NewQueue(workers []*WorkerHandle) *Queue {
	q := &Queue{
		wip:     make(map[ipc.JobID]wipEntry),
		workers: make(map[ipc.WorkerID]*WorkerHandle, len(workers)),
	}

	for _, w := range workers {
		q.workers[w.ID] = w
		q.freeOrder = append(q.freeOrder, w.ID)
	}

	return q
}

// Enqueue appends a job to the pending FIFO and returns its assigned id.
func (q *Queue) Enqueue(j ipc.Job, onResult func(ipc.WorkerID, ipc.Result) []FollowUp) ipc.JobID {
	id := q.nextJobID
	q.nextJobID++

	q.pending = append(q.pending, job{id: id, request: j, onResult: onResult})

	return id
}

// pinnedJob is a job destined for a specific worker regardless of that
// worker's current free/busy state at dispatch time — the dispatch loop
// sends it the moment that exact worker goes free, ahead of the generic
// pending FIFO (spec.md §4.5: Phase B never goes back through the free-
// worker pool).
type pinnedJob struct {
	job    job
	worker ipc.WorkerID
}

func (q *Queue) enqueuePinned(j ipc.Job, worker ipc.WorkerID, onResult func(ipc.WorkerID, ipc.Result) []FollowUp) {
	id := q.nextJobID
	q.nextJobID++

	q.pinned = append(q.pinned, pinnedJob{job: job{id: id, request: j, onResult: onResult}, worker: worker})
}

// Pending reports whether any work remains (queued, pinned, or in flight).
func (q *Queue) Pending() bool {
	return len(q.pending) > 0 || len(q.pinned) > 0 || len(q.wip) > 0
}

// Completed reports how many jobs have finished (for progress reporting).
func (q *Queue) Completed() int {
	return q.completedCount
}

// Total reports how many jobs have ever been enqueued.
func (q *Queue) Total() int {
	return int(q.nextJobID)
}
