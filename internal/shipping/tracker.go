package shipping

import (
	"context"
	"sync"
)

// Result is a tracker's latest visible outcome. Minor is nil while the
// newest request is in flight or has failed; a confirmed quote (including a
// zero one) sets it. Err carries the newest request's failure, if any.
type Result struct {
	Destination Destination
	Minor       *int64
	Err         error
}

// Tracker serializes advisory estimate requests so only the most recent
// request's outcome is ever visible. Starting a new request cancels the
// superseded in-flight one, and a late result from an old request is
// discarded by sequence check. Both guards are needed because cancellation
// is cooperative and a response may already be in the pipe.
type Tracker struct {
	estimator Estimator

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest Result
}

// NewTracker wraps an estimator.
func NewTracker(e Estimator) *Tracker {
	return &Tracker{estimator: e}
}

// Request starts a new estimate fetch, superseding any in-flight one. The
// visible result immediately resets to unknown for the new destination. The
// returned channel closes when this particular request settles (applied,
// failed, or discarded), which exists for callers that need to await it.
func (t *Tracker) Request(ctx context.Context, items []Item, dest Destination) <-chan struct{} {
	t.mu.Lock()
	t.seq++
	id := t.seq
	if t.cancel != nil {
		t.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.latest = Result{Destination: dest}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		est, err := t.estimator.Estimate(rctx, items, dest)

		t.mu.Lock()
		defer t.mu.Unlock()
		if id != t.seq {
			// Superseded while in flight; a newer request owns the display.
			return
		}
		if err != nil {
			t.latest.Err = err
			return
		}
		minor := est.Minor
		t.latest.Minor = &minor
	}()
	return done
}

// Latest returns the currently visible result.
func (t *Tracker) Latest() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}
