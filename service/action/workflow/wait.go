package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/runtime/run"
)

// WaitInput defines parameters for waiting on a run
type WaitInput struct {
	RunID string `json:"runId" required:"true" description:"Run id to wait for"`

	// TimeoutMs caps the wait; zero means 60s.
	TimeoutMs int `json:"timeoutMs,omitempty"`
	// PollMs sets the poll interval; zero means 50ms.
	PollMs int `json:"pollMs,omitempty"`
}

// WaitOutput describes the run once the wait ended
type WaitOutput struct {
	StatusOutput `json:",inline"`

	TimedOut  bool `json:"timedOut,omitempty"`
	ElapsedMs int  `json:"elapsedMs"`
}

// wait polls until the run is terminal or suspended at a gate; a suspended
// run will not move without an external decision, so waiting on it further
// would never return.
func (s *Service) wait(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*WaitInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*WaitOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if input.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	timeout := 60 * time.Second
	if input.TimeoutMs > 0 {
		timeout = time.Duration(input.TimeoutMs) * time.Millisecond
	}
	poll := 50 * time.Millisecond
	if input.PollMs > 0 {
		poll = time.Duration(input.PollMs) * time.Millisecond
	}

	started := time.Now()
	deadline := started.Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		aRun, err := s.manager.Get(ctx, input.RunID)
		if err != nil {
			return err
		}
		if run.Terminal(aRun.State) || aRun.State == run.StateSuspended {
			output.apply(aRun)
			output.ElapsedMs = int(time.Since(started) / time.Millisecond)
			return nil
		}
		if time.Now().After(deadline) {
			output.apply(aRun)
			output.TimedOut = true
			output.ElapsedMs = int(time.Since(started) / time.Millisecond)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
