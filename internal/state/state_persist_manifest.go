package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// DefaultLockTimeout is the deadline default for manifest and catalog
// lock acquisition.
const DefaultLockTimeout = 60 * time.Second

// UpdateManifest acquires the manifest lock for phase, reads the current
// Manifest (an absent file reads as a zero-value Manifest), applies fn,
// writes the result atomically, and releases the lock. fn mutates m in
// place; returning an error aborts the write.
func UpdateManifest(dir string, phase Phase, fn func(m *Manifest) error) error {
	return UpdateManifestTimeout(dir, phase, DefaultLockTimeout, fn)
}

// UpdateManifestTimeout is UpdateManifest with an explicit lock timeout.
func UpdateManifestTimeout(dir string, phase Phase, timeout time.Duration, fn func(m *Manifest) error) error {
	path := manifestPath(dir, phase)
	if err := os.MkdirAll(phaseDir(dir, phase), 0o755); err != nil {
		return ierrors.New(ierrors.KindTransientIO, "updateManifest", err).WithPath(path)
	}

	lock, err := store.AcquireLock(path, timeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	m, err := readManifestLocked(path)
	if err != nil {
		return err
	}

	if err := fn(m); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "updateManifest", err).WithPath(path)
	}
	return store.AtomicWrite(path, data)
}

// ReadManifest reads the manifest for phase without taking a lock; callers
// that need a read-modify-write cycle must use UpdateManifest instead.
func ReadManifest(dir string, phase Phase) (*Manifest, error) {
	return readManifestLocked(manifestPath(dir, phase))
}

func readManifestLocked(path string) (*Manifest, error) {
	data, err := store.AtomicRead(path, 3, 20*time.Millisecond)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "readManifest", err).WithPath(path)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "readManifest", err).WithPath(path)
	}
	return &m, nil
}

// MoveChapter moves chapterIndex into toSet (one of "completed",
// "in_progress", "failed") and out of the other two, maintaining the
// manifest invariant that each chapter index appears in at most one set.
func MoveChapter(m *Manifest, chapterIndex int, to Status) {
	m.CompletedChapters = removeInt(m.CompletedChapters, chapterIndex)
	m.InProgressChapters = removeInt(m.InProgressChapters, chapterIndex)
	m.FailedChapters = removeInt(m.FailedChapters, chapterIndex)

	switch to {
	case StatusCompleted:
		m.CompletedChapters = appendUnique(m.CompletedChapters, chapterIndex)
	case StatusInProgress:
		m.InProgressChapters = appendUnique(m.InProgressChapters, chapterIndex)
	case StatusFailed:
		m.FailedChapters = appendUnique(m.FailedChapters, chapterIndex)
	}
}

func removeInt(xs []int, v int) []int {
	out := xs[:0]
	for _, x := range xs {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func appendUnique(xs []int, v int) []int {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(xs, v)
}
