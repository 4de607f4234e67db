package scheduler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// Options configures Run's timing and logging (spec.md §6, §4.5).
type Options struct {
	PerJobTimeout time.Duration
	Logger        *slog.Logger
	OnProgress    func(completed, total int)
}

// Receiver is the scheduler's single inbound channel: every worker's
// stdout reader feeds the same aggregated stream, so the loop can wait on
// one Receive call regardless of which worker answers next (spec.md §4.5
// "the driver holds one shared receive queue fed by every worker").
type Receiver interface {
	Receive(timeout time.Duration) (ipc.Response, error)
}

// Run drives q to completion against receive, implementing spec.md §4.5's
// five-step loop: dispatch everything dispatchable, wait for one response
// (or time out a hung job), apply its follow-ups, and repeat until no work
// remains.
func Run(q *Queue, receive Receiver, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for q.Pending() {
		dispatch(q, logger)

		oldestDeadline := q.oldestDeadline()

		wait := opts.PerJobTimeout
		if !oldestDeadline.IsZero() {
			if remaining := time.Until(oldestDeadline); remaining > 0 && remaining < wait {
				wait = remaining
			}
		}

		resp, err := receive.Receive(wait)
		switch {
		case err == nil:
			q.complete(resp, logger)
		case isTimeout(err):
			q.reapHung(opts.PerJobTimeout, logger)
		default:
			// Malformed message: log and keep going rather than aborting the
			// whole run (spec.md §4.5 "a worker sending a malformed message
			// does not abort the run").
			logger.Warn("scheduler: malformed worker response", "error", err)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(q.Completed(), q.Total())
		}
	}

	return nil
}

func dispatch(q *Queue, logger *slog.Logger) {
	dispatchPinned(q, logger)
	dispatchPending(q, logger)
}

func dispatchPinned(q *Queue, logger *slog.Logger) {
	var remaining []pinnedJob

	for _, pj := range q.pinned {
		w, ok := q.workers[pj.worker]
		if !ok || w.Status != WorkerFree {
			remaining = append(remaining, pj)

			continue
		}

		send(q, w, pj.job, logger)
	}

	q.pinned = remaining
}

func dispatchPending(q *Queue, logger *slog.Logger) {
	for len(q.pending) > 0 && len(q.freeOrder) > 0 {
		workerID := q.freeOrder[0]
		q.freeOrder = q.freeOrder[1:]

		w, ok := q.workers[workerID]
		if !ok || w.Status != WorkerFree {
			continue
		}

		j := q.pending[0]
		q.pending = q.pending[1:]

		send(q, w, j, logger)
	}
}

func send(q *Queue, w *WorkerHandle, j job, logger *slog.Logger) {
	req := ipc.Request{ID: j.id, Job: j.request}

	if err := w.Proc.Send(req); err != nil {
		logger.Error("scheduler: send failed, worker presumed dead", "worker", w.ID, "job", j.id, "error", err)
		q.respawnAndRequeue(w, j)

		return
	}

	w.Status = WorkerBusy
	w.CurrentJob = j.id
	w.Since = time.Now()
	q.wip[j.id] = wipEntry{job: j, worker: w.ID}
}

func (q *Queue) oldestDeadline() time.Time {
	var oldest time.Time

	for _, w := range q.workers {
		if w.Status != WorkerBusy {
			continue
		}

		if oldest.IsZero() || w.Since.Before(oldest) {
			oldest = w.Since
		}
	}

	return oldest
}

func (q *Queue) complete(resp ipc.Response, logger *slog.Logger) {
	entry, ok := q.wip[resp.JobID]
	if !ok {
		logger.Warn("scheduler: response for unknown job", "job", resp.JobID, "worker", resp.WorkerID)

		return
	}

	delete(q.wip, resp.JobID)
	q.completedCount++

	if w, ok := q.workers[entry.worker]; ok {
		w.Status = WorkerFree
		q.freeOrder = append(q.freeOrder, w.ID)
	}

	if entry.job.onResult == nil {
		return
	}

	for _, fu := range entry.job.onResult(resp.WorkerID, resp.Result) {
		if fu.HasPinned {
			q.enqueuePinned(fu.Job, fu.PinnedWorker, fu.OnResult)
		} else {
			q.Enqueue(fu.Job, fu.OnResult)
		}
	}
}

// reapHung kills and respawns every worker that has been busy longer than
// timeout, requeueing its job (spec.md §8 "a hung worker is killed,
// respawned, and its job is requeued").
func (q *Queue) reapHung(timeout time.Duration, logger *slog.Logger) {
	now := time.Now()

	for id, w := range q.workers {
		if w.Status != WorkerBusy || now.Sub(w.Since) < timeout {
			continue
		}

		logger.Warn("scheduler: worker hung, killing and respawning", "worker", id, "job", w.CurrentJob)

		entry, ok := q.wip[w.CurrentJob]
		if ok {
			delete(q.wip, w.CurrentJob)
		}

		_ = w.Proc.Kill()
		w.Status = WorkerFree
		w.Since = now
		q.freeOrder = append(q.freeOrder, id)

		if ok {
			q.pending = append([]job{entry.job}, q.pending...)
		}
	}
}

func (q *Queue) respawnAndRequeue(w *WorkerHandle, j job) {
	w.Status = WorkerFree
	q.freeOrder = append(q.freeOrder, w.ID)
	q.pending = append([]job{j}, q.pending...)
}

func isTimeout(err error) bool {
	return errors.Is(err, ipc.ErrTimeout)
}
