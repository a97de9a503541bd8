package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// LoadBookState reads .imaginize.state.json from dir. A missing file is not
// an error: it returns (nil, nil), signaling a fresh book to the pipeline
// controller.
func LoadBookState(dir string) (*BookState, error) {
	data, err := store.AtomicRead(bookStatePath(dir), 3, 20*time.Millisecond)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "loadBookState", err).WithPath(bookStatePath(dir))
	}

	var bs BookState
	if err := json.Unmarshal(data, &bs); err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "loadBookState", err).WithPath(bookStatePath(dir))
	}
	return &bs, nil
}

// SaveBookState atomically writes state to .imaginize.state.json. Called
// only at phase boundaries, never per-chapter.
func SaveBookState(dir string, bs *BookState) error {
	bs.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(bs, "", "  ")
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "saveBookState", err)
	}
	if err := store.AtomicWrite(bookStatePath(dir), data); err != nil {
		return err
	}
	return nil
}
