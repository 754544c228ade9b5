package approval

import "errors"

var (
	// ErrNotFound is returned when no request exists under the given id.
	ErrNotFound = errors.New("approval: request not found")

	// ErrForbidden is returned when the caller is not allowed to act on the
	// request.
	ErrForbidden = errors.New("approval: caller is not the owner")

	// ErrAlreadyDecided is returned when the request is no longer pending.
	ErrAlreadyDecided = errors.New("approval: request already decided")

	// ErrInvalidRequest indicates a malformed create input: missing owner,
	// unknown action kind or an unparsable auto-approve rule.
	ErrInvalidRequest = errors.New("approval: invalid request")

	// ErrNoHandler is returned when a request is approved but no handler is
	// registered for its action kind.
	ErrNoHandler = errors.New("approval: no handler registered for action")

	// ErrStorage wraps request store failures. The call must be treated as
	// not having happened: the status transition is only authoritative once
	// the store confirmed the write.
	ErrStorage = errors.New("approval: storage failure")
)
