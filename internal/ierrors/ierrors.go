// Package ierrors defines the error taxonomy shared across the pipeline.
//
// Every error that crosses a phase boundary is tagged with a Kind so the
// scheduler and the pipeline controller can switch on it instead of string
// matching or type-asserting provider-specific error types.
package ierrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for retry and exit-code purposes.
type Kind string

const (
	// KindTransientIO covers local filesystem races (read-after-rename, stat
	// races on a lock file). Bounded retry, handled below the phase boundary.
	KindTransientIO Kind = "transient_io"
	// KindLockTimeout is surfaced with the contended path.
	KindLockTimeout Kind = "lock_timeout"
	// KindRateLimited is handled inside the scheduler; it only escapes as
	// KindRateLimitExhausted once maxRetries is exceeded.
	KindRateLimited Kind = "rate_limited"
	// KindRateLimitExhausted is terminal for the task that produced it.
	KindRateLimitExhausted Kind = "rate_limit_exhausted"
	// KindBadModelResponse covers unparseable model output after one re-prompt.
	KindBadModelResponse Kind = "bad_model_response"
	// KindAuthOrConfig is fatal for the phase.
	KindAuthOrConfig Kind = "auth_or_config"
	// KindMissingPrerequisite is fatal; the controller should explain how to
	// satisfy it.
	KindMissingPrerequisite Kind = "missing_prerequisite"
	// KindCancelled is a clean terminal state.
	KindCancelled Kind = "cancelled"
	// KindTransport covers network-level failures not otherwise classified.
	KindTransport Kind = "transport"
)

// Error is a Kind-tagged error that wraps an underlying cause.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "acquireLock", "analyzeChapterUnified"
	Path    string // optional: file/lock path, model id, etc.
	Err     error
	Retries int // attempts already made, for RateLimitExhausted

	// RetryAfter is the provider-suggested delay before the next attempt,
	// parsed from a Retry-After or x-ratelimit-reset-* response header.
	// Zero means no provider guidance was present and the scheduler should
	// fall back to its own backoff math.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the scheduler should retry an operation that
// failed with this error.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransientIO, KindRateLimited, KindTransport:
		return true
	default:
		return false
	}
}

// New builds a tagged Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a tagged Error from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithPath attaches a path/identifier to the error for logging.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithRetryAfter attaches a provider-suggested retry delay parsed from a
// response header.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// RetryAfterOf returns the RetryAfter duration carried by err, if it (or
// something it wraps) is an *Error with one set.
func RetryAfterOf(err error) time.Duration {
	if ie, ok := As(err); ok {
		return ie.RetryAfter
	}
	return 0
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, otherwise "".
func KindOf(err error) Kind {
	if ie, ok := As(err); ok {
		return ie.Kind
	}
	return ""
}

// Retryable reports whether err should trigger a scheduler retry. Errors
// that are not tagged are treated as non-retryable: unclassified errors
// fail fast.
func Retryable(err error) bool {
	if ie, ok := As(err); ok {
		return ie.Retryable()
	}
	return false
}

// ExitCode maps a Kind to the CLI's process exit code.
func ExitCode(kind Kind) int {
	switch kind {
	case "":
		return 0
	case KindMissingPrerequisite:
		return 3
	case KindRateLimitExhausted:
		return 4
	case KindAuthOrConfig, KindBadModelResponse, KindTransport:
		return 5
	case KindCancelled:
		return 130
	default:
		return 2
	}
}
