package worker

import (
	"io"
	"time"

	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
)

// Aggregator merges every worker's stdout stream into one channel, giving
// the scheduler the single shared receive queue spec.md §4.5 describes
// ("the driver holds one shared receive queue fed by every worker")
// despite each worker being a distinct OS pipe.
type Aggregator struct {
	responses chan ipc.Response
}

// NewAggregator returns an empty Aggregator. capacity sizes the internal
// channel buffer (one slot per worker is enough to never block a reader
// goroutine on a quiet scheduler).
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{responses: make(chan ipc.Response, capacity)}
}

// Attach starts a background goroutine decoding Responses from r and
// forwarding them to the shared channel until r is exhausted.
func (a *Aggregator) Attach(workerID ipc.WorkerID, r io.Reader) {
	reader := ipc.NewReader[ipc.Response](r)

	go func() {
		for {
			resp, err := reader.Receive(0)
			if err != nil {
				return
			}

			resp.WorkerID = workerID
			a.responses <- resp
		}
	}()
}

// Receive implements internal/scheduler.Receiver.
func (a *Aggregator) Receive(timeout time.Duration) (ipc.Response, error) {
	var after <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		after = timer.C
	}

	select {
	case resp := <-a.responses:
		return resp, nil
	case <-after:
		return ipc.Response{}, ipc.ErrTimeout
	}
}
