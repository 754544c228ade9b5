// Package memory provides the in-memory workflow run store.
package memory

import (
	"context"

	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/dao/criteria"
	"github.com/jobflowhq/jobflow/service/dao/store"
)

type service struct {
	*store.MemoryStore[string, run.Run]
}

func runKey(r *run.Run) string { return r.ID }

// New creates an in-memory run store.
func New() dao.Atomic[string, run.Run] {
	return &service{MemoryStore: store.NewMemoryStore[string, run.Run](runKey, (*run.Run).Clone)}
}

// List returns stored runs matching the supplied criteria parameters
// (Owner, State).
func (s *service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*run.Run, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(parameters) == 0 {
		return all, nil
	}
	out := make([]*run.Run, 0, len(all))
	for _, candidate := range all {
		fields := map[string]string{
			"Owner": candidate.OwnerID,
			"State": candidate.GetState(),
		}
		if criteria.Match(fields, parameters) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

var _ dao.Atomic[string, run.Run] = (*service)(nil)
