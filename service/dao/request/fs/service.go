// Package fs persists approval requests as JSON documents through the
// abstract file storage service, one file per request. Atomicity of
// CompareAndSwap is provided by a service-level lock; the write is treated as
// authoritative only when the upload succeeded.
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

	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/dao/criteria"
)

// Service implements a filesystem-based approval request store.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Atomic[string, approval.Request] = (*Service)(nil)

// Save persists a request.
func (s *Service) Save(ctx context.Context, request *approval.Request) error {
	if request == nil {
		return dao.ErrNilEntity
	}
	if request.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, request)
}

func (s *Service) upload(ctx context.Context, request *approval.Request) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	filePath := s.requestPath(request.ID)
	if err := s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save request to %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves a request, or nil when absent.
func (s *Service) Load(ctx context.Context, id string) (*approval.Request, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.download(ctx, id)
}

func (s *Service) download(ctx context.Context, id string) (*approval.Request, error) {
	filePath := s.requestPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check request %s: %w", id, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read request %s: %w", id, err)
	}
	var request approval.Request
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request %s: %w", id, err)
	}
	return &request, nil
}

// Delete removes a request.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.requestPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check request %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete request %s: %w", id, err)
	}
	return nil
}

// List returns stored requests matching the supplied criteria parameters
// (Owner, Status).
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*approval.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	var requests []*approval.Request
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var request approval.Request
		if err := json.Unmarshal(data, &request); err != nil {
			continue
		}
		fields := map[string]string{
			"Owner":  request.OwnerID,
			"Status": string(request.Status),
		}
		if !criteria.Match(fields, parameters) {
			continue
		}
		requests = append(requests, &request)
	}
	return requests, nil
}

// CompareAndSwap loads the record, applies check and mutate under the store
// lock and uploads the updated document. Only a successful upload counts: on
// write failure the caller must assume the transition did not happen.
func (s *Service) CompareAndSwap(ctx context.Context, id string, check func(*approval.Request) bool, mutate func(*approval.Request)) (*approval.Request, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.download(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, dao.ErrNotFound
	}
	if check != nil && !check(request) {
		return nil, dao.ErrPrecondition
	}
	if mutate != nil {
		mutate(request)
	}
	if err := s.upload(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *Service) requestPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem approval request store rooted at basePath.
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
