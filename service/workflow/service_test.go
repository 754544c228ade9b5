package workflow

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobflowhq/jobflow/extension"
	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/policy"
	"github.com/jobflowhq/jobflow/progress"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/gate"
	reqmem "github.com/jobflowhq/jobflow/service/dao/request/memory"
	runmem "github.com/jobflowhq/jobflow/service/dao/run/memory"
	"github.com/jobflowhq/jobflow/service/executor"
)

type job struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type findInput struct {
	Query string `json:"query"`
}

type findOutput struct {
	Jobs []job `json:"jobs"`
}

type searchService struct{}

func (s *searchService) Name() string { return "search" }

func (s *searchService) Methods() types.Signatures {
	return types.Signatures{{
		Name:   "find",
		Input:  reflect.TypeOf(&findInput{}),
		Output: reflect.TypeOf(&findOutput{}),
	}}
}

func (s *searchService) Method(name string) (types.Executable, error) {
	if name != "find" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		output := out.(*findOutput)
		output.Jobs = []job{
			{ID: "j1", Score: 0.95},
			{ID: "j2", Score: 0.61},
		}
		return nil
	}, nil
}

type rankInput struct {
	Jobs []job `json:"jobs"`
}

type rankOutput struct {
	Best job `json:"best"`
}

type rankService struct{}

func (s *rankService) Name() string { return "rank" }

func (s *rankService) Methods() types.Signatures {
	return types.Signatures{{
		Name:   "rank",
		Input:  reflect.TypeOf(&rankInput{}),
		Output: reflect.TypeOf(&rankOutput{}),
	}}
}

func (s *rankService) Method(name string) (types.Executable, error) {
	if name != "rank" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		input := in.(*rankInput)
		output := out.(*rankOutput)
		for _, candidate := range input.Jobs {
			if candidate.Score > output.Best.Score {
				output.Best = candidate
			}
		}
		return nil
	}, nil
}

type applyInput struct {
	JobID string `json:"jobId"`
}

type applyOutput struct {
	Confirmation string `json:"confirmation"`
}

type submitService struct {
	applied int32
	fail    error
}

func (s *submitService) Name() string { return "submit" }

func (s *submitService) Methods() types.Signatures {
	return types.Signatures{{
		Name:   "apply",
		Input:  reflect.TypeOf(&applyInput{}),
		Output: reflect.TypeOf(&applyOutput{}),
	}}
}

func (s *submitService) Method(name string) (types.Executable, error) {
	if name != "apply" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		if s.fail != nil {
			return s.fail
		}
		input := in.(*applyInput)
		atomic.AddInt32(&s.applied, 1)
		out.(*applyOutput).Confirmation = "applied to " + input.JobID
		return nil
	}, nil
}

type fixture struct {
	manager *Service
	gate    *gate.Service
	submit  *submitService
}

func newFixture(submit *submitService) *fixture {
	actions := extension.NewActions()
	actions.Register(&searchService{})
	actions.Register(&rankService{})
	actions.Register(submit)

	registry := approval.NewRegistry()
	approvals := gate.New(reqmem.New(), registry)
	manager := New(executor.NewService(actions), approvals, registry, runmem.New())
	approvals.AddListener(manager.OnDecision)
	return &fixture{manager: manager, gate: approvals, submit: submit}
}

func pipeline(autoApprove string) *model.Workflow {
	return model.NewWorkflow("job-application").
		WithStep("search", "search", "find", map[string]interface{}{"query": "${init.query}"}).
		WithStep("rank", "rank", "rank", map[string]interface{}{"jobs": "${search.jobs}"}).
		WithGate("approve apply", &model.Gate{
			Action:      string(approval.ActionApplyToJob),
			Title:       "Apply to ${rank.best.id}",
			AutoApprove: autoApprove,
			Payload: map[string]interface{}{
				"jobId": "${rank.best.id}",
				"score": "${rank.best.score}",
			},
		}).
		WithStep("submit", "submit", "apply", map[string]interface{}{"jobId": "${rank.best.id}"})
}

func TestService_ApprovePath(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	started, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)
	assert.Equal(t, run.StateSuspended, started.State)
	assert.NotEmpty(t, started.PendingRequestID)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.submit.applied))

	pending, err := f.gate.ListPending(ctx, "alice")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(pending))
	assert.Equal(t, started.PendingRequestID, pending[0].ID)
	assert.Equal(t, "Apply to j1", pending[0].Title)
	assert.Equal(t, DefaultCreatorID, pending[0].CreatorID)

	decided, err := f.gate.Decide(ctx, pending[0].ID, "alice", true, "go ahead")
	assert.Nil(t, err)
	assert.Equal(t, approval.StatusApproved, decided.Status)
	assert.False(t, decided.ExecutionFailed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.submit.applied))

	finished, err := f.manager.Get(ctx, started.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.StateCompleted, finished.State)
	assert.Empty(t, finished.PendingRequestID)
	output, ok := finished.Context["submit"].(*applyOutput)
	assert.True(t, ok)
	assert.Equal(t, "applied to j1", output.Confirmation)
	gateOutput, ok := finished.Context["approve apply"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, true, gateOutput["approved"])

	// a duplicate decision neither errors the run nor re-fires the action
	_, err = f.gate.Decide(ctx, pending[0].ID, "alice", true, "again")
	assert.True(t, errors.Is(err, approval.ErrAlreadyDecided))
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.submit.applied))
}

func TestService_RejectPath(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	started, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)
	assert.Equal(t, run.StateSuspended, started.State)

	_, err = f.gate.Decide(ctx, started.PendingRequestID, "alice", false, "not a fit")
	assert.Nil(t, err)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.submit.applied))

	aborted, err := f.manager.Get(ctx, started.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.StateAborted, aborted.State)
	assert.Contains(t, aborted.Error, string(approval.StatusRejected))
}

func TestService_AbortCancelsGate(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	started, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)

	assert.Nil(t, f.manager.Abort(ctx, started.ID, "owner gave up"))

	request, err := f.gate.Get(ctx, started.PendingRequestID, "alice")
	assert.Nil(t, err)
	assert.Equal(t, approval.StatusCancelled, request.Status)

	aborted, err := f.manager.Get(ctx, started.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.StateAborted, aborted.State)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.submit.applied))
}

func TestService_AutoApprovePath(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	started, err := f.manager.Start(ctx, pipeline(`data.score >= 0.9 && data.jobId == "j1"`),
		"alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)
	assert.Equal(t, run.StateCompleted, started.State)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.submit.applied))

	pending, err := f.gate.ListPending(ctx, "alice")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(pending))
}

func TestService_ResumeFailureRecordedOnRequest(t *testing.T) {
	f := newFixture(&submitService{fail: errors.New("job board down")})
	ctx := context.Background()

	started, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)

	decided, err := f.gate.Decide(ctx, started.PendingRequestID, "alice", true, "")
	assert.Nil(t, err)
	assert.Equal(t, approval.StatusApproved, decided.Status)
	assert.True(t, decided.ExecutionFailed)
	assert.Contains(t, decided.ExecutionError, "job board down")

	failed, err := f.manager.Get(ctx, started.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.StateFailed, failed.State)
}

func TestService_StartValidation(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	_, err := f.manager.Start(ctx, nil, "alice", nil)
	assert.True(t, errors.Is(err, ErrInvalidWorkflow))

	_, err = f.manager.Start(ctx, pipeline(""), "", nil)
	assert.True(t, errors.Is(err, ErrInvalidWorkflow))

	broken := &model.Workflow{Name: "broken", Steps: []*model.Step{{Name: "noop"}}}
	_, err = f.manager.Start(ctx, broken, "alice", nil)
	assert.True(t, errors.Is(err, ErrInvalidWorkflow))
}

func TestService_ProgressTracking(t *testing.T) {
	f := newFixture(&submitService{})
	ctx, tracker := progress.WithNewTracker(context.Background(), "", "job-application", nil)

	started, err := f.manager.Start(ctx, pipeline(`data.score >= 0.9 && data.jobId == "j1"`),
		"alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)
	assert.Equal(t, run.StateCompleted, started.State)

	snapshot := tracker.Snapshot()
	assert.Equal(t, 4, snapshot.TotalSteps)
	assert.Equal(t, 4, snapshot.CompletedSteps)
	assert.Equal(t, 0, snapshot.SuspendedSteps)
	assert.Equal(t, 0, snapshot.RunningSteps)
	assert.Equal(t, 0, snapshot.FailedSteps)
}

func TestService_PolicyBlocksStep(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		Mode:      policy.ModeAuto,
		BlockList: []string{"rank.rank"},
	})

	started, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.NotNil(t, err)
	var stepErr *executor.StepError
	assert.True(t, errors.As(err, &stepErr))
	assert.Equal(t, executor.KindDenied, stepErr.Kind)
	assert.Equal(t, run.StateFailed, started.State)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.submit.applied))
}

func TestService_List(t *testing.T) {
	f := newFixture(&submitService{})
	ctx := context.Background()

	first, err := f.manager.Start(ctx, pipeline(""), "alice", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)
	_, err = f.manager.Start(ctx, pipeline(""), "bob", map[string]interface{}{"query": "golang"})
	assert.Nil(t, err)

	suspended, err := f.manager.List(ctx, "alice", run.StateSuspended)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(suspended))
	assert.Equal(t, first.ID, suspended[0].ID)

	completed, err := f.manager.List(ctx, "alice", run.StateCompleted)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(completed))
}
