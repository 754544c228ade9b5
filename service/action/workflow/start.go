package workflow

import (
	"context"
	"fmt"

	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/runtime/run"
)

// StartInput defines parameters for starting a sub-run
type StartInput struct {
	// Workflow names a definition resolvable through the definition DAO.
	Workflow string `json:"workflow" required:"true" description:"Definition name or URL"`
	OwnerID  string `json:"ownerId" required:"true" description:"Owner of the new run"`

	Init map[string]interface{} `json:"init,omitempty" description:"Initial input for the run"`
}

// StartOutput describes the started run
type StartOutput struct {
	RunID            string `json:"runId"`
	State            string `json:"state"`
	PendingRequestID string `json:"pendingRequestId,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (s *Service) start(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*StartInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*StartOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if input.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}
	definition, err := s.definitions.Lookup(ctx, input.Workflow)
	if err != nil {
		return err
	}
	started, err := s.manager.Start(ctx, definition, input.OwnerID, input.Init)
	if started == nil {
		return err
	}
	// a failed step surfaces through the run state, not as a start error
	output.apply(started)
	return nil
}

func (o *StartOutput) apply(aRun *run.Run) {
	o.RunID = aRun.ID
	o.State = aRun.State
	o.PendingRequestID = aRun.PendingRequestID
	o.Error = aRun.Error
}
