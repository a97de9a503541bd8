package seriesconfig

import (
	"path/filepath"
	"testing"

	"github.com/tribixbite/imaginize/internal/catalog"
)

func TestLoad_MissingFileReturnsNilNoError(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "missing.series.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil for missing file", got)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imaginize.series.json")
	cfg := &SeriesConfig{
		Name: "The Riverlands Saga",
		Books: []BookRef{
			{ID: "book-1", Title: "Book One", Path: "./book-1", Order: 1, Status: "completed"},
			{ID: "book-2", Title: "Book Two", Path: "./book-2", Order: 2, Status: "pending"},
		},
		SharedElements: SharedElements{Enabled: true, MergeStrategy: catalog.StrategyEnrich},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Name != cfg.Name || len(got.Books) != 2 || got.SharedElements.MergeStrategy != catalog.StrategyEnrich {
		t.Errorf("Load() = %+v, want round-trip of %+v", got, cfg)
	}
}

func TestBookByID(t *testing.T) {
	cfg := &SeriesConfig{Books: []BookRef{{ID: "a"}, {ID: "b"}}}
	if cfg.BookByID("b") == nil {
		t.Errorf("BookByID(%q) = nil, want found", "b")
	}
	if cfg.BookByID("missing") != nil {
		t.Errorf("BookByID(missing) != nil, want nil")
	}
}
