package aiclient

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// classifyError maps an error from the openai-go SDK to the tagged error
// taxonomy the scheduler switches on. On a 429 it also parses the
// response's Retry-After/x-ratelimit-reset-* headers so the scheduler can
// honor the provider's own guidance instead of its default backoff math.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusRequestTimeout,
			http.StatusTooEarly,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			kind := ierrors.KindRateLimited
			if apiErr.StatusCode != http.StatusTooManyRequests {
				kind = ierrors.KindTransport
			}
			tagged := ierrors.New(kind, op, err)
			if apiErr.StatusCode == http.StatusTooManyRequests && apiErr.Response != nil {
				if d := retryAfterFromHeaders(apiErr.Response.Header); d > 0 {
					tagged = tagged.WithRetryAfter(d)
				}
			}
			return tagged
		case http.StatusUnauthorized, http.StatusForbidden:
			return ierrors.New(ierrors.KindAuthOrConfig, op, err)
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
			return ierrors.New(ierrors.KindAuthOrConfig, op, err)
		default:
			return ierrors.New(ierrors.KindTransport, op, err)
		}
	}

	// Connection-level failures (reset, DNS transient) surface without a
	// structured *openai.Error and are retryable.
	return ierrors.New(ierrors.KindTransport, op, err)
}

// retryAfterFromHeaders reads the provider's preferred retry delay,
// checking Retry-After (seconds, per RFC 7231) first and falling back to
// the x-ratelimit-reset-requests/x-ratelimit-reset-tokens duration-string
// headers OpenAI-compatible gateways send, the longer of the two when both
// are present.
func retryAfterFromHeaders(h http.Header) time.Duration {
	var d time.Duration
	if ra := h.Get("Retry-After"); ra != "" {
		if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs > 0 {
			d = time.Duration(secs * float64(time.Second))
		}
	}
	for _, key := range []string{"x-ratelimit-reset-requests", "x-ratelimit-reset-tokens"} {
		if v := h.Get(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil && parsed > d {
				d = parsed
			}
		}
	}
	return d
}
