package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// progressTickInterval matches the 2-second cadence the teacher's memory
// watchdog (cmd/codefang/main.go's startMemoryWatchdog) logs at.
const progressTickInterval = 2 * time.Second

// StartProgressTicker logs "N/M jobs complete" every two seconds until ctx
// is done. The returned function does not stop the ticker: it blocks until
// the ticker goroutine has exited after ctx is done. completed/total are read fresh on
// every tick so the caller doesn't need to synchronize anything beyond
// passing thread-safe accessors.
func StartProgressTicker(ctx context.Context, logger *slog.Logger, completed, total func() int) func() {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(progressTickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("indexing progress", "completed", completed(), "total", total())
			}
		}
	}()

	return func() { <-stopped }
}
