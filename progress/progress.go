// Package progress provides a lightweight tracker that keeps aggregated step
// counters (total, completed, failed, …) for a single workflow run. The
// tracker instance lives in the execution context – every component that
// receives the context can atomically update the counters via the Delta
// helper without requiring a global registry.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/jobflowhq/jobflow/internal/clock"
)

// Delta represents an incremental counter change emitted by the workflow
// manager. The fields are signed and therefore can be either positive
// (increment) or negative (decrement).
type Delta struct {
	Total     int
	Completed int
	Failed    int
	Suspended int
	Running   int
}

// Progress keeps aggregated step counters for a workflow run. It is safe for
// concurrent use.
type Progress struct {
	// Identification – informative only, filled when the run starts.
	RunID     string
	Workflow  string
	StartedAt time.Time

	// Counters – modified via Update().
	TotalSteps     int
	CompletedSteps int
	FailedSteps    int
	SuspendedSteps int
	RunningSteps   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker. It is safe to call from
// multiple goroutines. If an onChange callback has been registered it will be
// invoked with a copy of the updated tracker outside the critical section so
// that the callback can perform slow operations (e.g. JSON encoding, I/O)
// without blocking the manager.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.TotalSteps += d.Total
	p.CompletedSteps += d.Completed
	p.FailedSteps += d.Failed
	p.SuspendedSteps += d.Suspended
	p.RunningSteps += d.Running

	// Copy for the callback while we still hold the lock to avoid seeing
	// partially updated counters.
	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback. Only one callback can be active; subsequent calls
// overwrite the previous value.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both. The caller may optionally pass an onChange
// callback invoked after every counter update.
func WithNewTracker(ctx context.Context, runID, workflow string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		RunID:     runID,
		Workflow:  workflow,
		StartedAt: clock.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx. The second return value
// is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot. The boolean return value is
// false when the context does not carry a tracker.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the supplied
// delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
