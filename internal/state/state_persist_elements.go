package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// SetElements persists a full Catalog snapshot to .elements-memory.json.
// The catalog file shares the same single-writer lock discipline as the
// manifest; callers holding the catalog's in-process mutex for the active
// phase are expected to serialize calls to this function themselves.
func SetElements(dir string, c *catalog.Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "setElements", err)
	}
	return store.AtomicWrite(elementsMemoryPath(dir), data)
}

// LoadElements reads the persisted Catalog from .elements-memory.json. A
// missing file returns an empty, non-nil Catalog so callers can always
// merge into the result without a nil check.
func LoadElements(dir string) (*catalog.Catalog, error) {
	path := elementsMemoryPath(dir)
	data, err := store.AtomicRead(path, 3, 20*time.Millisecond)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog.New(), nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "loadElements", err).WithPath(path)
	}

	c := catalog.New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "loadElements", err).WithPath(path)
	}
	return c, nil
}
