package document

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// SaveInput defines parameters for persisting a document
type SaveInput struct {
	Name string `json:"name" required:"true" description:"Document file name, e.g. cover-letter.md"`
	Text string `json:"text" required:"true" description:"Document content"`
}

// SaveOutput describes the persisted document
type SaveOutput struct {
	Document *Document `json:"document,omitempty"`
}

// Save persists a document under the base location.
func (s *Service) Save(ctx context.Context, input *SaveInput, output *SaveOutput) error {
	if input.Name == "" {
		return fmt.Errorf("document name is required")
	}
	URL := url.Join(s.basePath, input.Name)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader([]byte(input.Text))); err != nil {
		return fmt.Errorf("failed to save document %s: %w", input.Name, err)
	}
	object, err := s.fs.Object(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to stat document %s: %w", input.Name, err)
	}
	output.Document = &Document{
		Name:        filepath.Base(URL),
		URL:         URL,
		ContentType: contentType(URL),
		Size:        object.Size(),
		ModTime:     object.ModTime(),
	}
	return nil
}
