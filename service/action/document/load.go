package document

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs/url"
)

// LoadInput defines parameters for loading a document
type LoadInput struct {
	Name string `json:"name" required:"true" description:"Document file name"`
}

// LoadOutput contains the loaded document with its text
type LoadOutput struct {
	Document *Document `json:"document,omitempty"`
}

// Load reads a stored document.
func (s *Service) Load(ctx context.Context, input *LoadInput, output *LoadOutput) error {
	if input.Name == "" {
		return fmt.Errorf("document name is required")
	}
	URL := url.Join(s.basePath, input.Name)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check document %s: %w", input.Name, err)
	}
	if !exists {
		return fmt.Errorf("document does not exist: %s", input.Name)
	}
	object, err := s.fs.Object(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to stat document %s: %w", input.Name, err)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", input.Name, err)
	}
	output.Document = &Document{
		Name:        filepath.Base(URL),
		URL:         URL,
		ContentType: contentType(URL),
		Size:        object.Size(),
		ModTime:     object.ModTime(),
		Text:        string(data),
	}
	return nil
}
