// Package document is a step service for storing and retrieving generated
// artifacts (resumes, cover letters, outreach drafts) through the abstract
// file system, so definitions work the same over local disk or remote
// storage.
package document

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/jobflowhq/jobflow/model/types"
)

const name = "document"

// Service provides document storage operations using viant/afs.
type Service struct {
	fs       afs.Service
	basePath string
}

// New creates a new document service rooted at basePath.
func New(basePath string) *Service {
	return &Service{
		fs:       afs.New(),
		basePath: url.Normalize(basePath, file.Scheme),
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "save",
			Description: "Persists a document under the configured location.",
			Input:       reflect.TypeOf(&SaveInput{}),
			Output:      reflect.TypeOf(&SaveOutput{}),
		},
		{
			Name:        "load",
			Description: "Loads a stored document including its text.",
			Input:       reflect.TypeOf(&LoadInput{}),
			Output:      reflect.TypeOf(&LoadOutput{}),
		},
		{
			Name:        "list",
			Description: "Lists stored documents.",
			Input:       reflect.TypeOf(&ListInput{}),
			Output:      reflect.TypeOf(&ListOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "save":
		return s.save, nil
	case "load":
		return s.load, nil
	case "list":
		return s.list, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) save(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SaveInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SaveOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Save(ctx, input, output)
}

func (s *Service) load(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*LoadInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*LoadOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Load(ctx, input, output)
}

func (s *Service) list(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ListInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ListOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.List(ctx, input, output)
}
