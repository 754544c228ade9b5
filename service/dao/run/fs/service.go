// Package fs persists suspended workflow runs as JSON documents through the
// abstract file storage service so a run can survive a process restart while
// it waits for an approval decision.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/dao/criteria"
)

// Service implements a filesystem-based run store.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Atomic[string, run.Run] = (*Service)(nil)

// Save persists a run.
func (s *Service) Save(ctx context.Context, r *run.Run) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, r)
}

func (s *Service) upload(ctx context.Context, r *run.Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	filePath := s.runPath(r.ID)
	if err := s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save run to %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves a run, or nil when absent.
func (s *Service) Load(ctx context.Context, id string) (*run.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.download(ctx, id)
}

func (s *Service) download(ctx context.Context, id string) (*run.Run, error) {
	filePath := s.runPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check run %s: %w", id, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	var r run.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &r, nil
}

// Delete removes a run.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.runPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check run %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// List returns stored runs matching the supplied criteria parameters
// (Owner, State).
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var runs []*run.Run
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var r run.Run
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		fields := map[string]string{
			"Owner": r.OwnerID,
			"State": r.GetState(),
		}
		if !criteria.Match(fields, parameters) {
			continue
		}
		runs = append(runs, &r)
	}
	return runs, nil
}

// CompareAndSwap loads the run, applies check and mutate under the store lock
// and uploads the updated document.
func (s *Service) CompareAndSwap(ctx context.Context, id string, check func(*run.Run) bool, mutate func(*run.Run)) (*run.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.download(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, dao.ErrNotFound
	}
	if check != nil && !check(r) {
		return nil, dao.ErrPrecondition
	}
	if mutate != nil {
		mutate(r)
	}
	if err := s.upload(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) runPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem run store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	if exists, _ := fs.Exists(ctx, basePath); !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Service{basePath: basePath, fs: fs}, nil
}
