// Package workflow runs workflow definitions step by step. Action steps are
// dispatched to the executor; gate steps park the run and open an approval
// request whose approval resumes the run exactly once, while a rejection or
// cancellation aborts it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/toolbox"

	"github.com/jobflowhq/jobflow/internal/idgen"
	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/progress"
	"github.com/jobflowhq/jobflow/runtime/expander"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/executor"
	"github.com/jobflowhq/jobflow/tracing"
)

// Payload keys linking an approval request back to its suspended run.
const (
	payloadRunID     = "runId"
	payloadStepIndex = "stepIndex"
	payloadData      = "data"
)

// DefaultCreatorID identifies the manager on requests it opens on the
// owner's behalf; it grants the manager cancel rights on its own requests.
const DefaultCreatorID = "workflow-manager"

// Option customises the manager.
type Option func(*Service)

// WithCreatorID overrides the creator id stamped on gate requests.
func WithCreatorID(id string) Option {
	return func(s *Service) { s.creatorID = id }
}

// Service drives workflow runs.
type Service struct {
	creatorID string
	executor  executor.Service
	approvals approval.Service
	registry  *approval.Registry
	runs      dao.Atomic[string, run.Run]

	mu      sync.Mutex
	handled map[approval.ActionKind]bool
}

// New creates a workflow manager. The registry must be the same one the
// approval service fires handlers from; the manager installs its resume
// handler there for every gate kind it encounters.
func New(exec executor.Service, approvals approval.Service, registry *approval.Registry, runs dao.Atomic[string, run.Run], options ...Option) *Service {
	ret := &Service{
		creatorID: DefaultCreatorID,
		executor:  exec,
		approvals: approvals,
		registry:  registry,
		runs:      runs,
		handled:   map[approval.ActionKind]bool{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Start validates the definition and begins a new run. The returned run is a
// snapshot: it may be completed, suspended at its first gate, or failed with
// the step error also returned.
func (s *Service) Start(ctx context.Context, workflow *model.Workflow, ownerID string, init map[string]interface{}) (*run.Run, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.start", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if workflow == nil {
		err = fmt.Errorf("%w: definition is nil", ErrInvalidWorkflow)
		return nil, err
	}
	if issues := workflow.Validate(); len(issues) > 0 {
		err = fmt.Errorf("%w: %v", ErrInvalidWorkflow, errors.Join(issues...))
		return nil, err
	}
	if ownerID == "" {
		err = fmt.Errorf("%w: owner id is empty", ErrInvalidWorkflow)
		return nil, err
	}
	span.SetAttribute("workflow", workflow.Name)

	aRun := run.New(idgen.New(), ownerID, workflow, init)
	if saveErr := s.runs.Save(ctx, aRun); saveErr != nil {
		err = saveErr
		return nil, err
	}
	progress.UpdateCtx(ctx, progress.Delta{Total: len(workflow.Steps)})
	err = s.advance(ctx, aRun, 0)
	// An auto-approved gate resumes the run synchronously through the store,
	// so the stored record, not the local one, carries the final state.
	final, loadErr := s.runs.Load(ctx, aRun.ID)
	if loadErr != nil || final == nil {
		return aRun.Clone(), err
	}
	return final.Clone(), err
}

// Get returns a snapshot of a run.
func (s *Service) Get(ctx context.Context, id string) (*run.Run, error) {
	aRun, err := s.runs.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if aRun == nil {
		return nil, ErrNotFound
	}
	return aRun.Clone(), nil
}

// List returns the owner's runs, optionally filtered by state, ordered by
// creation time ascending.
func (s *Service) List(ctx context.Context, ownerID string, states ...string) ([]*run.Run, error) {
	parameters := []*dao.Parameter{dao.NewParameter("Owner", ownerID)}
	if len(states) > 0 {
		parameters = append(parameters, dao.NewParameter("State", states...))
	}
	matched, err := s.runs.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	out := make([]*run.Run, 0, len(matched))
	for _, aRun := range matched {
		out = append(out, aRun.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Abort stops a run. A pending gate request is cancelled first so it can no
// longer be approved; cancellation of the request already aborts the run
// through the decision listener, the direct swap below covers runs that were
// not suspended.
func (s *Service) Abort(ctx context.Context, id, reason string) error {
	aRun, err := s.runs.Load(ctx, id)
	if err != nil {
		return err
	}
	if aRun == nil {
		return ErrNotFound
	}
	if requestID := aRun.Clone().PendingRequestID; requestID != "" {
		if err := s.approvals.Cancel(ctx, requestID, s.creatorID); err != nil && !errors.Is(err, approval.ErrAlreadyDecided) && !errors.Is(err, approval.ErrNotFound) {
			return err
		}
	}
	_, casErr := s.runs.CompareAndSwap(ctx, id,
		func(r *run.Run) bool { return !run.Terminal(r.GetState()) },
		func(r *run.Run) { r.Abort(reason) })
	if casErr != nil && !errors.Is(casErr, dao.ErrPrecondition) {
		return casErr
	}
	return nil
}

// OnDecision is the gate listener that aborts a suspended run when its
// pending request is rejected, cancelled or expired. Attach it to the gate
// service with gate.WithListener.
func (s *Service) OnDecision(request *approval.Request) {
	switch request.Status {
	case approval.StatusRejected, approval.StatusCancelled, approval.StatusExpired:
	default:
		return
	}
	runID := toolbox.AsString(request.Payload[payloadRunID])
	if runID == "" {
		return
	}
	ctx := context.Background()
	aRun, _ := s.swapSuspended(ctx, runID, request.ID, func(r *run.Run) {
		r.Abort(fmt.Sprintf("approval %s", request.Status))
	})
	if aRun != nil {
		_ = s.runs.Save(ctx, aRun)
	}
}

// advance executes steps starting at from until the run completes, fails or
// suspends at a gate.
func (s *Service) advance(ctx context.Context, aRun *run.Run, from int) error {
	steps := aRun.Workflow.Steps
	for i := from; i < len(steps); i++ {
		step := steps[i]
		if step.IsGate() {
			progress.UpdateCtx(ctx, progress.Delta{Suspended: 1})
			return s.suspend(ctx, aRun, i, step)
		}
		progress.UpdateCtx(ctx, progress.Delta{Running: 1})
		output, err := s.executor.Execute(ctx, step, aRun.Snapshot())
		if err != nil {
			progress.UpdateCtx(ctx, progress.Delta{Running: -1, Failed: 1})
			aRun.Fail(i, err)
			_ = s.runs.Save(ctx, aRun)
			return err
		}
		progress.UpdateCtx(ctx, progress.Delta{Running: -1, Completed: 1})
		aRun.SetOutput(step.Name, output)
		aRun.SetPosition(i)
		if err := s.runs.Save(ctx, aRun); err != nil {
			return err
		}
	}
	aRun.Complete()
	return s.runs.Save(ctx, aRun)
}

// suspend parks the run at the gate and opens its approval request. The run
// is persisted as suspended before the request exists, so an auto-approved
// request can resume it synchronously from within Create.
func (s *Service) suspend(ctx context.Context, aRun *run.Run, stepIndex int, step *model.Step) error {
	requestID := idgen.New()
	aRun.Suspend(stepIndex, requestID)
	if err := s.runs.Save(ctx, aRun); err != nil {
		return err
	}

	kind := approval.ActionKind(step.Gate.Action)
	s.ensureHandler(kind)

	state := aRun.Snapshot()
	request := &approval.Request{
		ID:          requestID,
		OwnerID:     aRun.OwnerID,
		CreatorID:   s.creatorID,
		Action:      kind,
		Title:       toolbox.AsString(expander.Expand(step.Gate.Title, state)),
		Description: toolbox.AsString(expander.Expand(step.Gate.Description, state)),
		AutoApprove: step.Gate.AutoApprove,
		Payload: map[string]interface{}{
			payloadRunID:     aRun.ID,
			payloadStepIndex: stepIndex,
			payloadData:      expander.ExpandMap(step.Gate.Payload, state),
		},
	}
	if _, err := s.approvals.Create(ctx, request); err != nil {
		aRun.Fail(stepIndex, err)
		_ = s.runs.Save(ctx, aRun)
		return err
	}
	return nil
}

// ensureHandler installs the resume handler for a gate kind, chaining to any
// previously registered handler for requests that are not run-bound.
func (s *Service) ensureHandler(kind approval.ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handled[kind] {
		return
	}
	prev := s.registry.Lookup(kind)
	s.registry.Register(kind, func(ctx context.Context, request *approval.Request) error {
		if toolbox.AsString(request.Payload[payloadRunID]) != "" {
			return s.resume(ctx, request)
		}
		if prev != nil {
			return prev(ctx, request)
		}
		return fmt.Errorf("%w: %s", approval.ErrNoHandler, kind)
	})
	s.handled[kind] = true
}

// resume continues a run whose gate request was approved. The suspended to
// running transition is conditional on the run still pointing at this very
// request, so a stale or duplicate approval can never restart a run.
func (s *Service) resume(ctx context.Context, request *approval.Request) error {
	runID := toolbox.AsString(request.Payload[payloadRunID])
	aRun, err := s.swapSuspended(ctx, runID, request.ID, func(r *run.Run) {
		r.Resume()
	})
	if err != nil {
		return err
	}

	gateIndex := toolbox.AsInt(request.Payload[payloadStepIndex])
	step := aRun.Workflow.Steps[gateIndex]
	aRun.SetOutput(step.Name, map[string]interface{}{
		"approved":  true,
		"requestId": request.ID,
		"decidedBy": request.DecidedBy,
		"notes":     request.Notes,
	})
	if err := s.runs.Save(ctx, aRun); err != nil {
		return err
	}
	progress.UpdateCtx(ctx, progress.Delta{Suspended: -1, Completed: 1})
	return s.advance(ctx, aRun, gateIndex+1)
}

func (s *Service) swapSuspended(ctx context.Context, runID, requestID string, mutate func(*run.Run)) (*run.Run, error) {
	aRun, casErr := s.runs.CompareAndSwap(ctx, runID,
		func(r *run.Run) bool {
			return r.GetState() == run.StateSuspended && r.Clone().PendingRequestID == requestID
		},
		mutate)
	switch {
	case errors.Is(casErr, dao.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(casErr, dao.ErrPrecondition):
		return nil, ErrNotSuspended
	case casErr != nil:
		return nil, casErr
	}
	return aRun, nil
}
