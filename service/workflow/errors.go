package workflow

import "errors"

var (
	// ErrNotFound indicates the run id is unknown.
	ErrNotFound = errors.New("workflow: run not found")
	// ErrInvalidWorkflow indicates the definition failed validation.
	ErrInvalidWorkflow = errors.New("workflow: invalid definition")
	// ErrNotSuspended indicates a resume was attempted on a run that is not
	// parked at a gate, or whose gate request does not match.
	ErrNotSuspended = errors.New("workflow: run not suspended")
)
