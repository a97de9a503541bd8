// Package store implements the atomic file store: write-temp-
// then-rename writes and file-lock acquisition with timeout. Every other
// persistence package in this repo (internal/state, internal/series,
// internal/seriesconfig) builds on top of these two primitives and never opens a
// managed file directly.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// AtomicWrite writes data to path by first writing to a sibling temp file
// and renaming it onto path. Rename is assumed atomic on POSIX; callers that
// need cross-process mutual exclusion around a read-modify-write cycle must
// still take a Lock (see lock.go) since AtomicWrite alone only guarantees
// readers never observe a partial file, not that writers don't race.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf("%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "atomicWrite", err).WithPath(path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return ierrors.New(ierrors.KindTransientIO, "atomicWrite", err).WithPath(path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ierrors.New(ierrors.KindTransientIO, "atomicWrite", err).WithPath(path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ierrors.New(ierrors.KindTransientIO, "atomicWrite", err).WithPath(path)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ierrors.New(ierrors.KindTransientIO, "atomicWrite", err).WithPath(path)
	}
	return nil
}

// AtomicRead reads path, retrying a handful of times if the file is
// momentarily missing: the brief window between a sibling process's
// AtomicWrite starting a rename and it landing. Any other error (permission,
// corrupt JSON the caller will detect itself) is returned immediately.
func AtomicRead(path string, maxAttempts int, retryDelay time.Duration) ([]byte, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var data []byte
	err := retry.Do(
		func() error {
			d, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			data = d
			return nil
		},
		retry.Attempts(uint(maxAttempts)),
		retry.Delay(retryDelay),
		retry.RetryIf(os.IsNotExist),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists reports whether path exists (file or directory).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
