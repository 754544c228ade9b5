package approval

import (
	"context"
	"time"

	"github.com/jobflowhq/jobflow/service/messaging"
)

// Service defines the approval gate operations.
type Service interface {
	// Create registers a new approval request and returns its id. When the
	// request carries an auto-approve rule that evaluates true against the
	// payload, the request is created directly in StatusApproved and its
	// handler fires synchronously before Create returns.
	Create(ctx context.Context, request *Request) (string, error)

	// Get returns a single request; only the owner (or the creator) may read it.
	Get(ctx context.Context, id, callerID string) (*Request, error)

	// Decide approves or rejects a pending request. The status transition is
	// atomic: of any number of concurrent calls exactly one succeeds, the
	// rest observe ErrAlreadyDecided, and the approval handler fires at most
	// once.
	Decide(ctx context.Context, id, callerID string, approved bool, notes string) (*Request, error)

	// Cancel retracts a pending request. Allowed for the owner and for the
	// creator that opened the gate (a workflow run retracting a superseded
	// gate).
	Cancel(ctx context.Context, id, callerID string) error

	// ListPending returns the owner's pending requests ordered by creation
	// time ascending.
	ListPending(ctx context.Context, ownerID string) ([]*Request, error)

	// ListAll returns the owner's requests, optionally filtered by status.
	ListAll(ctx context.Context, ownerID string, statuses ...Status) ([]*Request, error)

	// ExpireStale transitions pending requests older than the given age to
	// StatusExpired and returns how many were expired.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)

	// Cleanup deletes terminal requests older than the given age and returns
	// how many were removed. Pending requests are never swept by age alone.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)

	// Queue exposes the request/decision lifecycle event stream.
	Queue() messaging.Queue[Event]
}
