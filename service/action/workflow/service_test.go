package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobflowhq/jobflow/extension"
	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/action/nop"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/gate"
	reqmem "github.com/jobflowhq/jobflow/service/dao/request/memory"
	runmem "github.com/jobflowhq/jobflow/service/dao/run/memory"
	daoworkflow "github.com/jobflowhq/jobflow/service/dao/workflow"
	"github.com/jobflowhq/jobflow/service/executor"
	workflowsvc "github.com/jobflowhq/jobflow/service/workflow"
)

func newService(t *testing.T) *Service {
	actions := extension.NewActions()
	actions.Register(nop.New())

	registry := approval.NewRegistry()
	approvals := gate.New(reqmem.New(), registry)
	manager := workflowsvc.New(executor.NewService(actions), approvals, registry, runmem.New())
	approvals.AddListener(manager.OnDecision)

	definitions := daoworkflow.New(t.TempDir())
	assert.Nil(t, definitions.Upsert(context.Background(),
		model.NewWorkflow("noop").WithStep("noop", "nop", "nop", nil)))
	return New(manager, definitions)
}

func TestService_StartStatusWait(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()

	start, err := srv.Method("start")
	assert.Nil(t, err)
	var started StartOutput
	assert.Nil(t, start(ctx, &StartInput{Workflow: "noop", OwnerID: "alice"}, &started))
	assert.Equal(t, run.StateCompleted, started.State)
	assert.NotEmpty(t, started.RunID)

	status, err := srv.Method("status")
	assert.Nil(t, err)
	var current StatusOutput
	assert.Nil(t, status(ctx, &StatusInput{RunID: started.RunID}, &current))
	assert.Equal(t, run.StateCompleted, current.State)

	wait, err := srv.Method("wait")
	assert.Nil(t, err)
	var waited WaitOutput
	assert.Nil(t, wait(ctx, &WaitInput{RunID: started.RunID, TimeoutMs: 100, PollMs: 5}, &waited))
	assert.Equal(t, run.StateCompleted, waited.State)
	assert.False(t, waited.TimedOut)
}

func TestService_StartUnknownDefinition(t *testing.T) {
	srv := newService(t)

	start, err := srv.Method("start")
	assert.Nil(t, err)
	err = start(context.Background(), &StartInput{Workflow: "missing", OwnerID: "alice"}, &StartOutput{})
	assert.NotNil(t, err)
}
