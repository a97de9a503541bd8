package bookparse

import "github.com/tribixbite/imaginize/internal/ierrors"

// MockParser is a fixture-backed Parser for tests: it ignores the
// requested path and returns whatever Book was configured.
type MockParser struct {
	Book      *Book
	ShouldErr bool
}

func (p *MockParser) Parse(sourcePath string) (*Book, error) {
	if p.ShouldErr {
		return nil, ierrors.Newf(ierrors.KindMissingPrerequisite, "bookparse.MockParser.Parse", "failed to parse %q", sourcePath)
	}
	if p.Book == nil {
		return &Book{SourcePath: sourcePath}, nil
	}
	b := *p.Book
	b.SourcePath = sourcePath
	return &b, nil
}

var _ Parser = (*MockParser)(nil)
