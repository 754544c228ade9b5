// Package workflow loads and persists workflow definitions as YAML
// documents. Definitions live under a base location addressed through the
// abstract file system, so the same service reads local files, embedded
// assets or remote storage.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/jobflowhq/jobflow/model"
)

// ErrNotFound indicates no definition exists under the requested name or URL.
var ErrNotFound = errors.New("workflow definition not found")

// Service is a workflow definition DAO with an in-memory cache keyed by
// workflow name.
type Service struct {
	fs       afs.Service
	basePath string

	mu    sync.RWMutex
	cache map[string]*model.Workflow
}

// New creates a definition DAO rooted at basePath.
func New(basePath string) *Service {
	return &Service{
		fs:       afs.New(),
		basePath: url.Normalize(basePath, file.Scheme),
		cache:    make(map[string]*model.Workflow),
	}
}

// DecodeYAML decodes a workflow definition from YAML and validates it.
func (s *Service) DecodeYAML(encoded []byte) (*model.Workflow, error) {
	workflow := &model.Workflow{}
	if err := yaml.Unmarshal(encoded, workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}
	if issues := workflow.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid workflow %v: %w", workflow.Name, errors.Join(issues...))
	}
	return workflow, nil
}

// Load reads a workflow definition from the given URL. A URL without an
// extension gets ".yaml" appended; a relative URL is resolved against the
// base location. The loaded definition is cached under its name.
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	if url.Scheme(URL, "") == "" && !strings.HasPrefix(URL, "/") {
		URL = url.Join(s.basePath, URL)
	}
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check workflow %v: %w", URL, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, URL)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow from %v: %w", URL, err)
	}
	workflow, err := s.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow from %v: %w", URL, err)
	}
	if workflow.Name == "" {
		workflow.Name = nameFromURL(URL)
	}
	s.put(workflow)
	return workflow, nil
}

// Lookup returns a cached definition by name, falling back to loading
// "<name>.yaml" from the base location.
func (s *Service) Lookup(ctx context.Context, name string) (*model.Workflow, error) {
	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}
	return s.Load(ctx, name)
}

// Upsert persists a definition under the base location and refreshes the
// cache entry.
func (s *Service) Upsert(ctx context.Context, workflow *model.Workflow) error {
	if workflow == nil || workflow.Name == "" {
		return fmt.Errorf("workflow name is empty")
	}
	if issues := workflow.Validate(); len(issues) > 0 {
		return fmt.Errorf("invalid workflow %v: %w", workflow.Name, errors.Join(issues...))
	}
	data, err := yaml.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow %v: %w", workflow.Name, err)
	}
	URL := url.Join(s.basePath, workflow.Name+".yaml")
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store workflow %v: %w", workflow.Name, err)
	}
	s.put(workflow)
	return nil
}

// Refresh reloads every definition under the base location, replacing the
// cache.
func (s *Service) Refresh(ctx context.Context) error {
	objects, err := s.fs.List(ctx, s.basePath)
	if err != nil {
		return fmt.Errorf("failed to list workflows at %v: %w", s.basePath, err)
	}
	fresh := make(map[string]*model.Workflow)
	for _, object := range objects {
		if object.IsDir() || !isYAML(object.Name()) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return fmt.Errorf("failed to load workflow %v: %w", object.URL(), err)
		}
		workflow, err := s.DecodeYAML(data)
		if err != nil {
			return fmt.Errorf("failed to parse workflow %v: %w", object.URL(), err)
		}
		if workflow.Name == "" {
			workflow.Name = nameFromURL(object.URL())
		}
		fresh[workflow.Name] = workflow
	}
	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()
	return nil
}

// Names lists cached definition names.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cache))
	for name := range s.cache {
		out = append(out, name)
	}
	return out
}

func (s *Service) put(workflow *model.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[workflow.Name] = workflow
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func nameFromURL(URL string) string {
	base := path.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
