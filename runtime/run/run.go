// Package run models one execution instance of a workflow definition: its
// position in the step list, the accumulated step outputs and its lifecycle
// state, including suspension at an approval gate.
package run

import (
	"sync"
	"time"

	"github.com/jobflowhq/jobflow/internal/clock"
	"github.com/jobflowhq/jobflow/model"
)

// Run state constants.
const (
	StateRunning   = "running"
	StateSuspended = "suspended_pending_approval"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateAborted   = "aborted"
)

// Terminal reports whether a run state is final.
func Terminal(state string) bool {
	switch state {
	case StateCompleted, StateFailed, StateAborted:
		return true
	}
	return false
}

// Run represents a workflow execution instance. When it suspends at a gate,
// everything needed to resume later lives here: the workflow definition, the
// index of the gate step, the accumulated context and the id of the pending
// approval request.
type Run struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"ownerId"`
	Workflow *model.Workflow `json:"workflow"`

	// StepIndex is the index of the step the run is positioned at: the gate
	// it suspended on, the step it failed on, or the last step on completion.
	StepIndex int `json:"stepIndex"`

	// Context accumulates step outputs keyed by step name, seeded with the
	// initial input under the "init" key.
	Context map[string]interface{} `json:"context,omitempty"`

	State            string     `json:"state"`
	PendingRequestID string     `json:"pendingRequestId,omitempty"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`

	mu sync.RWMutex
}

// New creates a running instance of the given workflow.
func New(id, ownerID string, workflow *model.Workflow, initial map[string]interface{}) *Run {
	now := clock.Now()
	context := map[string]interface{}{}
	if len(initial) > 0 {
		context["init"] = initial
	}
	return &Run{
		ID:        id,
		OwnerID:   ownerID,
		Workflow:  workflow,
		State:     StateRunning,
		Context:   context,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetState returns the run state.
func (r *Run) GetState() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

// SetOutput records a step's output in the run context.
func (r *Run) SetOutput(step string, output interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Context == nil {
		r.Context = map[string]interface{}{}
	}
	r.Context[step] = output
	r.UpdatedAt = clock.Now()
}

// Snapshot returns a shallow copy of the accumulated context.
func (r *Run) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]interface{}, len(r.Context))
	for k, v := range r.Context {
		out[k] = v
	}
	return out
}

// SetPosition records the index of the most recently completed step.
func (r *Run) SetPosition(stepIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StepIndex = stepIndex
	r.UpdatedAt = clock.Now()
}

// Suspend parks the run at a gate step pending the given approval request.
func (r *Run) Suspend(stepIndex int, requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateSuspended
	r.StepIndex = stepIndex
	r.PendingRequestID = requestID
	r.UpdatedAt = clock.Now()
}

// Resume moves a suspended run back to running and clears the pending gate.
func (r *Run) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = StateRunning
	r.PendingRequestID = ""
	r.UpdatedAt = clock.Now()
}

// Complete marks the run finished.
func (r *Run) Complete() {
	r.finish(StateCompleted, "")
}

// Fail marks the run failed at the given step.
func (r *Run) Fail(stepIndex int, err error) {
	r.mu.Lock()
	r.StepIndex = stepIndex
	r.mu.Unlock()
	message := ""
	if err != nil {
		message = err.Error()
	}
	r.finish(StateFailed, message)
}

// Abort marks the run permanently stopped, e.g. after its gate was rejected
// or cancelled.
func (r *Run) Abort(reason string) {
	r.finish(StateAborted, reason)
}

func (r *Run) finish(state, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := clock.Now()
	r.State = state
	r.Error = message
	r.PendingRequestID = ""
	r.FinishedAt = &now
	r.UpdatedAt = now
}

// Clone creates a copy safe for handing out to callers. The workflow
// definition is immutable after load and is shared.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Run{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Workflow:         r.Workflow,
		StepIndex:        r.StepIndex,
		State:            r.State,
		PendingRequestID: r.PendingRequestID,
		Error:            r.Error,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	if r.Context != nil {
		out.Context = make(map[string]interface{}, len(r.Context))
		for k, v := range r.Context {
			out.Context[k] = v
		}
	}
	return out
}
