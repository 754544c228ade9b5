package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/dao"
)

func pipeline() *model.Workflow {
	return model.NewWorkflow("job-application").
		WithStep("search", "search", "find", map[string]interface{}{"query": "${init.query}"}).
		WithGate("approve apply", &model.Gate{Action: "apply_to_job"})
}

func TestService_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	srv, err := New(dir)
	assert.Nil(t, err)
	ctx := context.Background()

	aRun := run.New("run-1", "alice", pipeline(), map[string]interface{}{"query": "golang"})
	aRun.Suspend(1, "req-1")
	assert.Nil(t, srv.Save(ctx, aRun))

	// a fresh service sees the suspended run with everything needed to resume
	fresh, err := New(dir)
	assert.Nil(t, err)
	loaded, err := fresh.Load(ctx, "run-1")
	assert.Nil(t, err)
	assert.Equal(t, run.StateSuspended, loaded.GetState())
	assert.Equal(t, "req-1", loaded.PendingRequestID)
	assert.Equal(t, 1, loaded.StepIndex)
	assert.Equal(t, "job-application", loaded.Workflow.Name)
	assert.Equal(t, 2, len(loaded.Workflow.Steps))

	missing, err := srv.Load(ctx, "run-2")
	assert.Nil(t, err)
	assert.Nil(t, missing)
}

func TestService_ListAndSwap(t *testing.T) {
	srv, err := New(t.TempDir())
	assert.Nil(t, err)
	ctx := context.Background()

	first := run.New("run-1", "alice", pipeline(), nil)
	first.Suspend(1, "req-1")
	second := run.New("run-2", "alice", pipeline(), nil)
	second.Complete()
	third := run.New("run-3", "bob", pipeline(), nil)
	for _, aRun := range []*run.Run{first, second, third} {
		assert.Nil(t, srv.Save(ctx, aRun))
	}

	suspended, err := srv.List(ctx,
		dao.NewParameter("Owner", "alice"),
		dao.NewParameter("State", run.StateSuspended))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(suspended))
	assert.Equal(t, "run-1", suspended[0].ID)

	resumed, err := srv.CompareAndSwap(ctx, "run-1",
		func(r *run.Run) bool { return r.GetState() == run.StateSuspended && r.PendingRequestID == "req-1" },
		func(r *run.Run) { r.Resume() })
	assert.Nil(t, err)
	assert.Equal(t, run.StateRunning, resumed.GetState())

	_, err = srv.CompareAndSwap(ctx, "run-2",
		func(r *run.Run) bool { return r.GetState() == run.StateSuspended },
		func(r *run.Run) { r.Resume() })
	assert.True(t, errors.Is(err, dao.ErrPrecondition))
}
