package jobflow

import (
	"context"
	"sync"
	"time"

	"github.com/jobflowhq/jobflow/model"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/tracing"
)

// Runtime is the operational façade: it loads definitions, starts and
// inspects runs and owns the background maintenance loop that ages approval
// requests.
type Runtime struct {
	service *Service

	mu      sync.Mutex
	done    chan struct{}
	stopped sync.WaitGroup
}

func newRuntime(service *Service) *Runtime {
	return &Runtime{service: service}
}

// LoadWorkflow loads a workflow definition from the given URL or name.
func (r *Runtime) LoadWorkflow(ctx context.Context, location string) (*model.Workflow, error) {
	return r.service.workflowDAO.Load(ctx, location)
}

// DecodeYAMLWorkflow decodes a workflow definition from YAML bytes.
func (r *Runtime) DecodeYAMLWorkflow(data []byte) (*model.Workflow, error) {
	return r.service.workflowDAO.DecodeYAML(data)
}

// UpsertDefinition persists a definition so runs can reference it by name.
func (r *Runtime) UpsertDefinition(ctx context.Context, workflow *model.Workflow) error {
	return r.service.workflowDAO.Upsert(ctx, workflow)
}

// RefreshDefinitions reloads every definition from the base location.
func (r *Runtime) RefreshDefinitions(ctx context.Context) error {
	return r.service.workflowDAO.Refresh(ctx)
}

// StartRun starts a run of the given workflow definition.
func (r *Runtime) StartRun(ctx context.Context, workflow *model.Workflow, ownerID string, init map[string]interface{}) (*run.Run, error) {
	return r.service.manager.Start(ctx, workflow, ownerID, init)
}

// Run returns a snapshot of a run.
func (r *Runtime) Run(ctx context.Context, id string) (*run.Run, error) {
	return r.service.manager.Get(ctx, id)
}

// Runs lists the owner's runs, optionally filtered by state.
func (r *Runtime) Runs(ctx context.Context, ownerID string, states ...string) ([]*run.Run, error) {
	return r.service.manager.List(ctx, ownerID, states...)
}

// AbortRun stops a run and cancels its pending gate request, if any.
func (r *Runtime) AbortRun(ctx context.Context, id, reason string) error {
	return r.service.manager.Abort(ctx, id, reason)
}

// Start launches the maintenance loop. It is idempotent.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return nil
	}
	if err := r.service.config.Validate(); err != nil {
		return err
	}
	r.done = make(chan struct{})
	r.stopped.Add(1)
	go r.maintain(ctx, r.done)
	return nil
}

// Shutdown stops the maintenance loop and flushes tracing.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	r.mu.Unlock()
	r.stopped.Wait()
	return tracing.Shutdown(ctx)
}

// maintain periodically expires stale pending requests and sweeps decided
// ones past retention.
func (r *Runtime) maintain(ctx context.Context, done <-chan struct{}) {
	defer r.stopped.Done()
	config := r.service.config
	ticker := time.NewTicker(config.Maintenance.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			_, _ = r.service.approvals.ExpireStale(ctx, config.Gate.PendingExpiry)
			_, _ = r.service.approvals.Cleanup(ctx, config.Gate.Retention)
		}
	}
}
