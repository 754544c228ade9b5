package document

import (
	"context"
	"fmt"
	"path"

	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
)

// ListInput defines parameters for listing documents
type ListInput struct {
	Recursive bool `json:"recursive,omitempty" description:"List documents recursively"`
	PageSize  int  `json:"pageSize,omitempty" description:"Maximum number of results to return"`
}

// ListOutput contains the documents found
type ListOutput struct {
	Documents []*Document `json:"documents,omitempty"`
}

// List lists documents under the base location.
func (s *Service) List(ctx context.Context, input *ListInput, output *ListOutput) error {
	listOptions := make([]storage.Option, 0)
	if input.Recursive {
		listOptions = append(listOptions, option.NewRecursive(true))
	}
	if input.PageSize > 0 {
		listOptions = append(listOptions, option.NewPage(0, input.PageSize))
	}

	objects, err := s.fs.List(ctx, s.basePath, listOptions...)
	if err != nil {
		return fmt.Errorf("failed to list documents at %s: %w", s.basePath, err)
	}
	documents := make([]*Document, 0, len(objects))
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		documents = append(documents, &Document{
			Name:        path.Base(object.URL()),
			URL:         object.URL(),
			ContentType: contentType(object.URL()),
			Size:        object.Size(),
			ModTime:     object.ModTime(),
		})
	}
	output.Documents = documents
	return nil
}
