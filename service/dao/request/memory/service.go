// Package memory provides the in-memory approval request store used by tests
// and single-process deployments.
package memory

import (
	"context"

	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/dao/criteria"
	"github.com/jobflowhq/jobflow/service/dao/store"
)

type service struct {
	*store.MemoryStore[string, approval.Request]
}

func requestKey(r *approval.Request) string { return r.ID }

// New creates an in-memory approval request store.
func New() dao.Atomic[string, approval.Request] {
	return &service{MemoryStore: store.NewMemoryStore[string, approval.Request](requestKey, (*approval.Request).Clone)}
}

// List returns stored requests matching the supplied criteria parameters
// (Owner, Status).
func (s *service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*approval.Request, error) {
	all, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(parameters) == 0 {
		return all, nil
	}
	out := make([]*approval.Request, 0, len(all))
	for _, request := range all {
		fields := map[string]string{
			"Owner":  request.OwnerID,
			"Status": string(request.Status),
		}
		if criteria.Match(fields, parameters) {
			out = append(out, request)
		}
	}
	return out, nil
}

var _ dao.Atomic[string, approval.Request] = (*service)(nil)
