package worker

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// Run reads framed Requests from stdin and writes framed Responses to
// stdout until it receives ipc.ShutdownJobID or idleTimeout elapses with
// no request arriving (SPEC_FULL.md §12.6: the worker's --idle-timeout,
// which the driver sets to worker_idle_timeout_scale times its own per-job
// timeout, so an orphaned
// worker — driver crashed without sending Shutdown — still exits instead
// of running forever).
func Run(rt *Runtime, stdin io.Reader, stdout io.Writer, workerID ipc.WorkerID, idleTimeout time.Duration, logger *slog.Logger) error {
	reader := ipc.NewReader[ipc.Request](stdin)
	writer := ipc.NewWriter(stdout, 0)

	for {
		req, err := reader.Receive(idleTimeout)
		if err != nil {
			if errors.Is(err, ipc.ErrTimeout) {
				logger.Warn("worker: idle timeout, exiting", "worker", workerID)

				return nil
			}

			logger.Warn("worker: read error, exiting", "worker", workerID, "error", err)

			return err
		}

		if req.Job.Kind == ipc.JobShutdown || req.ID == ipc.ShutdownJobID {
			_ = writer.Send(ipc.Response{WorkerID: workerID, JobID: req.ID, Result: ipc.Result{Kind: ipc.ResultShutdownAck}})
			rt.Close()

			return nil
		}

		result := rt.Handle(req.ID, req.Job)

		if err := writer.Send(ipc.Response{WorkerID: workerID, JobID: req.ID, Result: result}); err != nil {
			logger.Warn("worker: send failed, exiting", "worker", workerID, "error", err)

			return err
		}
	}
}
