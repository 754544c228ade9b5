package approval

import (
	"context"
	"sync"
)

// Handler performs the deferred action of an approved request. It receives a
// copy of the request; mutating it has no effect on the stored record. The
// gate fires the handler at most once per request, and only as a consequence
// of the transition into StatusApproved.
type Handler func(ctx context.Context, request *Request) error

// Registry maps action kinds to their handlers. A kind has exactly one
// handler; registering again replaces the previous one (composition is the
// caller's concern).
type Registry struct {
	mu       sync.RWMutex
	handlers map[ActionKind]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[ActionKind]Handler)}
}

// Register binds a handler to an action kind.
func (r *Registry) Register(kind ActionKind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = handler
}

// Lookup returns the handler for a kind, or nil.
func (r *Registry) Lookup(kind ActionKind) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[kind]
}

// Kinds returns the kinds with a registered handler.
func (r *Registry) Kinds() []ActionKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ActionKind, 0, len(r.handlers))
	for kind := range r.handlers {
		out = append(out, kind)
	}
	return out
}
