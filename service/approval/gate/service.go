// Package gate implements the approval service over an injected atomic
// request store. The exactly-once guarantee rests on a single conditional
// status transition: the handler runs only when this call's compare-and-swap
// moved the request from pending to approved, so of any number of concurrent
// decide calls at most one ever fires the deferred action.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jobflowhq/jobflow/internal/clock"
	"github.com/jobflowhq/jobflow/internal/idgen"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/rule"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/messaging"
	qmem "github.com/jobflowhq/jobflow/service/messaging/memory"
	"github.com/jobflowhq/jobflow/tracing"
)

// AutoDecidedBy marks requests approved by their auto-approve rule.
const AutoDecidedBy = "auto"

// Listener observes terminal transitions. It is invoked synchronously after
// the status write and after the handler (if any) ran; the request copy
// reflects the final record.
type Listener func(request *approval.Request)

// Option customises the gate service.
type Option func(*Service)

// WithQueue replaces the lifecycle event queue.
func WithQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *Service) { s.events = queue }
}

// WithListener attaches a terminal-transition listener.
func WithListener(listeners ...Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, listeners...) }
}

// Service implements approval.Service.
type Service struct {
	store    dao.Atomic[string, approval.Request]
	registry *approval.Registry
	events   messaging.Queue[approval.Event]

	mu        sync.RWMutex
	listeners []Listener
}

var _ approval.Service = (*Service)(nil)

// New creates a gate over the given request store and handler registry.
func New(store dao.Atomic[string, approval.Request], registry *approval.Registry, options ...Option) *Service {
	ret := &Service{
		store:    store,
		registry: registry,
		events:   qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// AddListener attaches a terminal-transition listener after construction.
func (s *Service) AddListener(listeners ...Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listeners...)
}

// Create registers a new approval request. When the auto-approve rule
// evaluates true against the payload the request is created directly in
// StatusApproved and its handler fires before Create returns; it never
// appears in the owner's pending queue.
func (s *Service) Create(ctx context.Context, request *approval.Request) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.create", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if request == nil {
		err = approval.ErrInvalidRequest
		return "", err
	}
	if request.OwnerID == "" {
		err = fmt.Errorf("%w: owner id is empty", approval.ErrInvalidRequest)
		return "", err
	}
	if !request.Action.Valid() {
		err = fmt.Errorf("%w: unknown action kind %q", approval.ErrInvalidRequest, request.Action)
		return "", err
	}
	autoApprove, ruleErr := rule.Parse(request.AutoApprove)
	if ruleErr != nil {
		err = fmt.Errorf("%w: auto-approve rule: %v", approval.ErrInvalidRequest, ruleErr)
		return "", err
	}

	if request.ID == "" {
		request.ID = idgen.New()
	}
	request.CreatedAt = clock.Now()
	request.Status = approval.StatusPending

	if autoApprove.Eval(request.Payload) {
		now := clock.Now()
		request.Status = approval.StatusApproved
		request.DecidedAt = &now
		request.DecidedBy = AutoDecidedBy
		request.Notes = "auto-approved"
	}

	if saveErr := s.store.Save(ctx, request); saveErr != nil {
		err = fmt.Errorf("%w: %v", approval.ErrStorage, saveErr)
		return "", err
	}
	s.publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: request.Clone()})

	if request.Status == approval.StatusApproved {
		s.fire(ctx, request.Clone())
		final, _ := s.store.Load(ctx, request.ID)
		if final == nil {
			final = request
		}
		s.publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: &approval.Decision{
			RequestID: request.ID,
			Approved:  true,
			Notes:     request.Notes,
			DecidedBy: AutoDecidedBy,
			DecidedAt: *request.DecidedAt,
		}})
		s.notify(final.Clone())
	}
	return request.ID, nil
}

// Get returns a single request; only its owner or creator may read it.
func (s *Service) Get(ctx context.Context, id, callerID string) (*approval.Request, error) {
	request, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrStorage, err)
	}
	if request == nil {
		return nil, approval.ErrNotFound
	}
	if callerID != request.OwnerID && (request.CreatorID == "" || callerID != request.CreatorID) {
		return nil, approval.ErrForbidden
	}
	return request.Clone(), nil
}

// Decide approves or rejects a pending request. The transition and the
// decision to run the handler are one atomic step: the handler is invoked
// only when this call's compare-and-swap succeeded.
func (s *Service) Decide(ctx context.Context, id, callerID string, approved bool, notes string) (*approval.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "approval.decide", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	current, loadErr := s.store.Load(ctx, id)
	if loadErr != nil {
		err = fmt.Errorf("%w: %v", approval.ErrStorage, loadErr)
		return nil, err
	}
	if current == nil {
		err = approval.ErrNotFound
		return nil, err
	}
	if callerID != current.OwnerID {
		err = approval.ErrForbidden
		return nil, err
	}

	target := approval.StatusRejected
	if approved {
		target = approval.StatusApproved
	}
	now := clock.Now()
	updated, casErr := s.store.CompareAndSwap(ctx, id,
		func(r *approval.Request) bool { return r.Status == approval.StatusPending },
		func(r *approval.Request) {
			r.Status = target
			r.DecidedAt = &now
			r.DecidedBy = callerID
			r.Notes = notes
		})
	switch {
	case errors.Is(casErr, dao.ErrPrecondition):
		err = approval.ErrAlreadyDecided
		return nil, err
	case errors.Is(casErr, dao.ErrNotFound):
		err = approval.ErrNotFound
		return nil, err
	case casErr != nil:
		// The transition may or may not have been recorded; without a
		// confirmed write the handler must not run.
		err = fmt.Errorf("%w: %v", approval.ErrStorage, casErr)
		return nil, err
	}

	if approved {
		s.fire(ctx, updated.Clone())
	}
	final, _ := s.store.Load(ctx, id)
	if final == nil {
		final = updated
	}
	s.publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: &approval.Decision{
		RequestID: id,
		Approved:  approved,
		Notes:     notes,
		DecidedBy: callerID,
		DecidedAt: now,
	}})
	s.notify(final.Clone())
	return final.Clone(), nil
}

// Cancel retracts a pending request. The owner may cancel, and so may the
// creator that opened the gate on the owner's behalf.
func (s *Service) Cancel(ctx context.Context, id, callerID string) error {
	current, loadErr := s.store.Load(ctx, id)
	if loadErr != nil {
		return fmt.Errorf("%w: %v", approval.ErrStorage, loadErr)
	}
	if current == nil {
		return approval.ErrNotFound
	}
	if callerID != current.OwnerID && (current.CreatorID == "" || callerID != current.CreatorID) {
		return approval.ErrForbidden
	}

	now := clock.Now()
	updated, casErr := s.store.CompareAndSwap(ctx, id,
		func(r *approval.Request) bool { return r.Status == approval.StatusPending },
		func(r *approval.Request) {
			r.Status = approval.StatusCancelled
			r.DecidedAt = &now
			r.DecidedBy = callerID
		})
	switch {
	case errors.Is(casErr, dao.ErrPrecondition):
		return approval.ErrAlreadyDecided
	case errors.Is(casErr, dao.ErrNotFound):
		return approval.ErrNotFound
	case casErr != nil:
		return fmt.Errorf("%w: %v", approval.ErrStorage, casErr)
	}
	s.notify(updated.Clone())
	return nil
}

// ListPending returns the owner's pending requests ordered by creation time
// ascending.
func (s *Service) ListPending(ctx context.Context, ownerID string) ([]*approval.Request, error) {
	return s.ListAll(ctx, ownerID, approval.StatusPending)
}

// ListAll returns the owner's requests, optionally filtered by status,
// ordered by creation time ascending.
func (s *Service) ListAll(ctx context.Context, ownerID string, statuses ...approval.Status) ([]*approval.Request, error) {
	parameters := []*dao.Parameter{dao.NewParameter("Owner", ownerID)}
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		parameters = append(parameters, dao.NewParameter("Status", values...))
	}
	matched, err := s.store.List(ctx, parameters...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrStorage, err)
	}
	out := make([]*approval.Request, 0, len(matched))
	for _, request := range matched {
		out = append(out, request.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ExpireStale transitions pending requests older than the given age to
// StatusExpired. Each transition goes through the same conditional swap as
// decide, so an expiry can never race a concurrent approval.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := clock.Now().Add(-olderThan)
	pending, err := s.store.List(ctx, dao.NewParameter("Status", string(approval.StatusPending)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", approval.ErrStorage, err)
	}
	expired := 0
	for _, candidate := range pending {
		if !candidate.CreatedAt.Before(cutoff) {
			continue
		}
		now := clock.Now()
		updated, casErr := s.store.CompareAndSwap(ctx, candidate.ID,
			func(r *approval.Request) bool { return r.Status == approval.StatusPending },
			func(r *approval.Request) {
				r.Status = approval.StatusExpired
				r.DecidedAt = &now
			})
		if casErr != nil {
			continue // decided or removed meanwhile
		}
		expired++
		s.publish(ctx, &approval.Event{Topic: approval.TopicRequestExpired, Data: updated.Clone()})
		s.notify(updated.Clone())
	}
	return expired, nil
}

// Cleanup deletes terminal requests older than the given age. Pending
// requests are never swept by age alone; terminal status is monotonic, so a
// record observed terminal here can no longer race an in-flight decide.
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := clock.Now().Add(-olderThan)
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", approval.ErrStorage, err)
	}
	removed := 0
	for _, candidate := range all {
		if !candidate.Status.Terminal() || !candidate.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, candidate.ID); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

// Queue exposes the lifecycle event stream.
func (s *Service) Queue() messaging.Queue[approval.Event] {
	return s.events
}

// fire runs the registered handler for an approved request. A handler error
// is recorded on the request and never reverts the approval: the approval is
// a decision about intent, the execution failure is surfaced separately so
// the action itself can be retried.
func (s *Service) fire(ctx context.Context, request *approval.Request) {
	handler := s.registry.Lookup(request.Action)
	var handlerErr error
	if handler == nil {
		handlerErr = fmt.Errorf("%w: %s", approval.ErrNoHandler, request.Action)
	} else {
		handlerErr = handler(ctx, request)
	}
	if handlerErr == nil {
		return
	}
	_, _ = s.store.CompareAndSwap(ctx, request.ID,
		func(r *approval.Request) bool { return r.Status == approval.StatusApproved },
		func(r *approval.Request) {
			r.ExecutionFailed = true
			r.ExecutionError = handlerErr.Error()
		})
}

func (s *Service) publish(ctx context.Context, event *approval.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, event)
}

func (s *Service) notify(request *approval.Request) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, listener := range listeners {
		listener(request)
	}
}
