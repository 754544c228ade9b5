package workflow

import (
	"context"
	"fmt"

	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/runtime/run"
)

// StatusInput defines parameters for querying a run
type StatusInput struct {
	RunID string `json:"runId" required:"true" description:"Run id to query"`
}

// StatusOutput describes the current run state
type StatusOutput struct {
	RunID            string `json:"runId"`
	State            string `json:"state"`
	StepIndex        int    `json:"stepIndex"`
	PendingRequestID string `json:"pendingRequestId,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (s *Service) status(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*StatusInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*StatusOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if input.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	aRun, err := s.manager.Get(ctx, input.RunID)
	if err != nil {
		return err
	}
	output.apply(aRun)
	return nil
}

func (o *StatusOutput) apply(aRun *run.Run) {
	o.RunID = aRun.ID
	o.State = aRun.State
	o.StepIndex = aRun.StepIndex
	o.PendingRequestID = aRun.PendingRequestID
	o.Error = aRun.Error
}
