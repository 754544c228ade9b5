package store

import (
	"context"
	"sync"

	"github.com/jobflowhq/jobflow/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Atomic. It keeps
// entities of type *T mapped by a comparable key K obtained from the supplied
// keySelector function.
//
// Concrete DAOs embed the store to avoid rewriting identical
// Save/Load/Delete/List logic per entity type; higher-level DAOs override
// List when they need criteria filtering.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
	cloner      func(*T) *T
}

// NewMemoryStore creates a new MemoryStore. keySelector extracts the entity
// key (usually the ID field) from a value. cloner deep-copies a record; when
// non-nil every record crossing the store boundary is copied while the store
// lock is held, so a caller can never observe a record another caller is
// mutating through CompareAndSwap. A nil cloner shares stored pointers and is
// only safe for single-goroutine use.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, cloner func(*T) *T) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		cloner:      cloner,
	}
}

func (s *MemoryStore[K, T]) clone(v *T) *T {
	if v == nil || s.cloner == nil {
		return v
	}
	return s.cloner(v)
}

// Save stores or overwrites a record. The stored value is a private copy, so
// later mutations of v by the caller do not leak into the store.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = s.clone(v)
	return nil
}

// Load returns a copy of the record under key, or nil when absent.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns copies of all stored records.
func (s *MemoryStore[K, T]) List(_ context.Context, _ ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, s.clone(v))
	}
	return out, nil
}

// CompareAndSwap applies mutate to the record under key while holding the
// store lock, but only when check accepts the current value. Exactly one of
// any set of concurrent callers whose check requires the same prior state
// will succeed; the rest observe dao.ErrPrecondition. The returned record is
// a copy taken before the lock is released.
func (s *MemoryStore[K, T]) CompareAndSwap(_ context.Context, key K, check func(*T) bool, mutate func(*T)) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	if check != nil && !check(v) {
		return nil, dao.ErrPrecondition
	}
	if mutate != nil {
		mutate(v)
	}
	return s.clone(v), nil
}
