package executor

import "fmt"

// ErrorKind classifies a step failure.
type ErrorKind string

const (
	// KindNotFound marks a reference to a service or method that is not
	// registered.
	KindNotFound ErrorKind = "not_found"
	// KindInvalidInput marks an input that could not be expanded or
	// converted into the method's declared input type.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindFailure marks an error returned by the step method itself.
	KindFailure ErrorKind = "handler_failure"
	// KindTimeout marks a method that did not return before the deadline.
	KindTimeout ErrorKind = "timeout"
	// KindDenied marks a step refused by the run's execution policy.
	KindDenied ErrorKind = "denied"
)

// StepError describes why a step failed; Kind distinguishes definition
// problems from runtime failures so callers can decide whether a retry can
// help.
type StepError struct {
	Step string
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %v: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func newStepError(step string, kind ErrorKind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}
