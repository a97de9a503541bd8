package store

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// staleFactor is how many multiples of the caller's timeout must elapse
// before a lock file is considered abandoned and reclaimable.
const staleFactor = 5

const (
	pollMinMs = 50
	pollMaxMs = 200
)

// LockHandle represents a held file lock. Release must be called exactly
// once, typically via defer.
type LockHandle struct {
	path string
}

// Release removes the lock file, making the path available to the next
// acquirer. Safe to call from the goroutine that acquired the lock only;
// file locks here are advisory and process-local concurrency must still be
// handled with an in-process mutex where relevant (see internal/catalog).
func (h *LockHandle) Release() error {
	if err := os.RemoveAll(h.path); err != nil && !os.IsNotExist(err) {
		return ierrors.New(ierrors.KindTransientIO, "releaseLock", err).WithPath(h.path)
	}
	return nil
}

// AcquireLock creates path+".lock" with fail-if-exists semantics, polling
// with 50-200ms jitter until timeout elapses. A lock file whose age exceeds
// staleFactor*timeout is treated as abandoned by a dead process and is
// reclaimed (including the "stale lock exists as a directory" pathology,
// which is removed recursively before retrying).
func AcquireLock(path string, timeout time.Duration) (*LockHandle, error) {
	lockPath := path + ".lock"
	deadline := time.Now().Add(timeout)

	for {
		if acquired, err := tryCreateLock(lockPath); err != nil {
			return nil, err
		} else if acquired {
			return &LockHandle{path: lockPath}, nil
		}

		if reclaimStaleLock(lockPath, timeout) {
			continue // retry immediately, no need to sleep through the jitter window
		}

		if time.Now().After(deadline) {
			return nil, ierrors.Newf(ierrors.KindLockTimeout, "acquireLock",
				"timed out after %s waiting for lock", timeout).WithPath(lockPath)
		}

		jitter := time.Duration(pollMinMs+rand.Intn(pollMaxMs-pollMinMs)) * time.Millisecond
		time.Sleep(jitter)
	}
}

// tryCreateLock attempts an O_EXCL create of the lock file, writing this
// process's pid inside it so a later acquirer can check liveness.
func tryCreateLock(lockPath string) (bool, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		// A directory already occupying lockPath also surfaces as an error
		// here (not IsExist on some platforms); let reclaimStaleLock sort it
		// out on the next loop iteration.
		if info, statErr := os.Stat(lockPath); statErr == nil && info.IsDir() {
			return false, nil
		}
		return false, ierrors.New(ierrors.KindTransientIO, "acquireLock", err).WithPath(lockPath)
	}
	defer f.Close()
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return true, nil
}

// reclaimStaleLock removes lockPath if it is older than staleFactor*timeout
// and not held by a live pid. Returns true if it removed (or found
// nothing to remove because it already vanished) so the caller can retry
// the create immediately.
func reclaimStaleLock(lockPath string, timeout time.Duration) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Vanished between our failed create and this stat; safe to retry now.
		return os.IsNotExist(err)
	}

	if time.Since(info.ModTime()) < staleFactor*timeout {
		return false
	}

	if info.IsDir() {
		// Observed failure mode: a crashed process left a directory where the
		// lock file should be. Always reclaimable once stale since a
		// directory can't carry a pid marker to check liveness against.
		_ = os.RemoveAll(lockPath)
		return true
	}

	if pid, ok := readLockPid(lockPath); ok && pidAlive(pid) {
		return false
	}

	_ = os.Remove(lockPath)
	return true
}

func readLockPid(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// pidAlive reports whether pid refers to a running process. On POSIX,
// signal 0 probes existence without affecting the target.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscallSig0) == nil
}
