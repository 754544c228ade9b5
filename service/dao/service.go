package dao

import (
	"context"
)

type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// Atomic extends Service with a conditional single-record update. It is the
// storage primitive the approval gate builds its exactly-once guarantee on:
// check and mutate run as one atomic operation against the record, so two
// concurrent callers can never both observe the precondition as satisfied.
type Atomic[K comparable, T any] interface {
	Service[K, T]

	// CompareAndSwap applies mutate to the record stored under key, but only
	// when check accepts the current value. It returns the updated record,
	// ErrNotFound when no record exists, or ErrPrecondition when check
	// rejected it. A nil check always passes.
	CompareAndSwap(ctx context.Context, key K, check func(*T) bool, mutate func(*T)) (*T, error)
}
