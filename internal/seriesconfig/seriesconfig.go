// Package seriesconfig defines SeriesConfig, the JSON document at a
// series root that lists the books belonging to it and the merge strategy
// the series bridge applies to the shared series memory.
package seriesconfig

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// BookRef is one entry in SeriesConfig.Books.
type BookRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Order  int    `json:"order"`
	Status string `json:"status"`
}

// SharedElements configures whether/how the series bridge merges entities
// across books.
type SharedElements struct {
	Enabled       bool             `json:"enabled"`
	MergeStrategy catalog.Strategy `json:"mergeStrategy"`
}

// SeriesConfig is the on-disk shape of .imaginize.series.json.
type SeriesConfig struct {
	Name           string         `json:"name"`
	Books          []BookRef      `json:"books"`
	SharedElements SharedElements `json:"sharedElements"`
}

// Load reads and parses a SeriesConfig from path. A missing file is not an
// error: callers treat a nil config as "series mode disabled".
func Load(path string) (*SeriesConfig, error) {
	data, err := store.AtomicRead(path, 3, 20*time.Millisecond)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "seriesconfig.Load", err).WithPath(path)
	}
	var cfg SeriesConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ierrors.New(ierrors.KindAuthOrConfig, "seriesconfig.Load", err).WithPath(path)
	}
	return &cfg, nil
}

// Save atomically writes cfg to path as JSON.
func Save(path string, cfg *SeriesConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return ierrors.New(ierrors.KindAuthOrConfig, "seriesconfig.Save", err).WithPath(path)
	}
	return store.AtomicWrite(path, data)
}

// BookByID returns the BookRef with the given ID, or nil if absent.
func (c *SeriesConfig) BookByID(id string) *BookRef {
	for i := range c.Books {
		if c.Books[i].ID == id {
			return &c.Books[i]
		}
	}
	return nil
}
