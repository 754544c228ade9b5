package approval

import (
	"context"
	"errors"
	"time"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls the owner's pending requests and
// applies fn to each one. It returns stop() – call it (or cancel ctx) to
// exit.
func AutoDecider(ctx context.Context,
	svc Service,
	ownerID string,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.ListPending(ctx, ownerID)
				for _, request := range requests {
					approved, reason := fn(request)
					_, _ = svc.Decide(ctx, request.ID, ownerID, approved, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all of the owner's pending requests.
func AutoApprove(ctx context.Context,
	svc Service,
	ownerID string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, ownerID,
		func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all of the owner's pending requests with
// the given reason.
func AutoReject(ctx context.Context,
	svc Service,
	ownerID string,
	reason string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc, ownerID,
		func(*Request) (bool, string) { return false, reason }, interval)
}

// WaitForDecision polls until the request leaves StatusPending or ctx
// expires, returning the terminal record.
func WaitForDecision(ctx context.Context, svc Service, id, callerID string, interval time.Duration) (*Request, error) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		request, err := svc.Get(ctx, id, callerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if request != nil && request.Status != StatusPending {
			return request, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
