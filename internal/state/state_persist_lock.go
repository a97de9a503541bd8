package state

import (
	"time"

	"github.com/tribixbite/imaginize/internal/store"
)

// LockCatalog acquires the catalog-file lock for dir. The catalog file
// has a single writer at a time; callers must hold this lock around any
// read-merge-write cycle against the catalog, not just the final
// SetElements write.
func LockCatalog(dir string, timeout time.Duration) (*store.LockHandle, error) {
	return store.AcquireLock(elementsMemoryPath(dir), timeout)
}
