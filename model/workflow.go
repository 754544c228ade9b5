package model

import (
	"fmt"
)

// Workflow represents an ordered pipeline of steps, some of which may be
// gated behind a human approval before the run can continue.
type Workflow struct {
	// Name is the unique identifier for the workflow
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the workflow version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Steps define the linear execution order; a run advances through them
	// one by one until it completes, fails or suspends at a gate.
	Steps []*Step `json:"steps" yaml:"steps"`
}

// Step is either an action step (invokes a registered step service) or a
// gate step (suspends the run pending an approval decision). Exactly one of
// Action or Gate must be set.
type Step struct {
	Name   string  `json:"name" yaml:"name"`
	Action *Action `json:"action,omitempty" yaml:"action,omitempty"`
	Gate   *Gate   `json:"gate,omitempty" yaml:"gate,omitempty"`
}

// Action identifies a step service method and its input mapping. Input values
// may reference prior step outputs with $step.field / ${step.field} selectors
// that are expanded against the accumulated run context.
type Action struct {
	Service string                 `json:"service" yaml:"service"`
	Method  string                 `json:"method" yaml:"method"`
	Input   map[string]interface{} `json:"input,omitempty" yaml:"input,omitempty"`

	// InputType optionally names a registered extension type the expanded
	// input is converted into before resolving the method's declared input.
	InputType string `json:"inputType,omitempty" yaml:"inputType,omitempty"`
}

// Gate describes an approval checkpoint. When a run reaches a gate it
// persists its state and creates an approval request; the run resumes at the
// following step only once that request is approved.
type Gate struct {
	// Action tags the kind of deferred action the approval authorises,
	// e.g. "apply_to_job" or "send_email".
	Action string `json:"action" yaml:"action"`

	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// AutoApprove holds an optional predicate over the expanded payload,
	// e.g. `score >= 0.9 && remote == true`. When it evaluates true the gate
	// is skipped and the run continues without human review.
	AutoApprove string `json:"autoApprove,omitempty" yaml:"autoApprove,omitempty"`

	// Payload is expanded against the run context and attached to the
	// approval request so a reviewer sees what they are approving.
	Payload map[string]interface{} `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// IsGate reports whether the step suspends the run pending approval.
func (s *Step) IsGate() bool {
	return s != nil && s.Gate != nil
}

// Validate performs structural validation of the workflow definition. The
// returned slice is empty when the definition is sound.
func (w *Workflow) Validate() []error {
	var issues []error
	if w.Name == "" {
		issues = append(issues, fmt.Errorf("workflow name is empty"))
	}
	if len(w.Steps) == 0 {
		issues = append(issues, fmt.Errorf("workflow %q has no steps", w.Name))
		return issues
	}
	seen := map[string]bool{}
	for i, step := range w.Steps {
		if step == nil {
			issues = append(issues, fmt.Errorf("step %d is nil", i))
			continue
		}
		if step.Name == "" {
			issues = append(issues, fmt.Errorf("step %d has no name", i))
		}
		if seen[step.Name] {
			issues = append(issues, fmt.Errorf("duplicate step name %s", step.Name))
		}
		seen[step.Name] = true
		switch {
		case step.Action == nil && step.Gate == nil:
			issues = append(issues, fmt.Errorf("step %s defines neither action nor gate", step.Name))
		case step.Action != nil && step.Gate != nil:
			issues = append(issues, fmt.Errorf("step %s defines both action and gate", step.Name))
		case step.Action != nil:
			if step.Action.Service == "" || step.Action.Method == "" {
				issues = append(issues, fmt.Errorf("step %s action needs service and method", step.Name))
			}
		case step.Gate != nil:
			if step.Gate.Action == "" {
				issues = append(issues, fmt.Errorf("step %s gate needs an action kind", step.Name))
			}
		}
	}
	return issues
}

// LookupStep returns the step with the given name or nil.
func (w *Workflow) LookupStep(name string) *Step {
	for _, step := range w.Steps {
		if step.Name == name {
			return step
		}
	}
	return nil
}

// NewWorkflow creates a named workflow definition.
func NewWorkflow(name string) *Workflow {
	return &Workflow{Name: name}
}

// WithDescription sets the workflow description.
func (w *Workflow) WithDescription(description string) *Workflow {
	w.Description = description
	return w
}

// WithStep appends an action step.
func (w *Workflow) WithStep(name, service, method string, input map[string]interface{}) *Workflow {
	w.Steps = append(w.Steps, &Step{
		Name:   name,
		Action: &Action{Service: service, Method: method, Input: input},
	})
	return w
}

// WithGate appends a gate step.
func (w *Workflow) WithGate(name string, gate *Gate) *Workflow {
	w.Steps = append(w.Steps, &Step{Name: name, Gate: gate})
	return w
}
