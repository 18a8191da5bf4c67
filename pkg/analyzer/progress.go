package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives progress updates: done and total counts plus the
// path of the item that just finished.
type ProgressFunc func(done, total int, path string)

// Tracker reports parse progress. Safe for concurrent use; the parse pool
// ticks it from many goroutines at once.
type Tracker struct {
	total    atomic.Int32
	done     atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a tracker that invokes callback on each Tick.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// SetTotal records how many items will be processed. The catalog stage
// calls this once before the parse fan-out starts.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Tick marks one item complete and reports it.
func (t *Tracker) Tick(path string) {
	done := int(t.done.Add(1))
	total := int(t.total.Load())
	if t.callback != nil {
		t.callback(done, total, path)
	}
}

// Done returns the number of completed items.
func (t *Tracker) Done() int {
	return int(t.done.Load())
}

// Total returns the expected item count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context carrying a progress tracker so callers can
// observe the parse stage without threading an extra parameter through it.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the tracker, or nil if none was attached.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
