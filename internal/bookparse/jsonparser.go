package bookparse

import (
	"encoding/json"
	"os"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// JSONParser loads a Book from a pre-parsed JSON manifest: the document
// an upstream EPUB/PDF extraction step is expected to hand the pipeline.
type JSONParser struct{}

// bookDocument mirrors Book's exported shape for JSON decoding.
type bookDocument struct {
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	TotalPages int           `json:"total_pages"`
	Chapters   []ChapterSpec `json:"chapters"`
}

// Parse reads sourcePath as a JSON-encoded bookDocument and returns the
// corresponding Book.
func (p *JSONParser) Parse(sourcePath string) (*Book, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "bookparse.JSONParser.Parse", err).WithPath(sourcePath)
	}

	var doc bookDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ierrors.New(ierrors.KindAuthOrConfig, "bookparse.JSONParser.Parse", err).WithPath(sourcePath)
	}

	return &Book{
		Title:      doc.Title,
		Author:     doc.Author,
		SourcePath: sourcePath,
		TotalPages: doc.TotalPages,
		Chapters:   doc.Chapters,
	}, nil
}

var _ Parser = (*JSONParser)(nil)
