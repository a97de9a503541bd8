package aiclient

import (
	"net/http"
	"testing"
	"time"
)

func TestRetryAfterFromHeaders_PrefersRetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "3")

	got := retryAfterFromHeaders(h)
	if got != 3*time.Second {
		t.Errorf("retryAfterFromHeaders = %v, want 3s", got)
	}
}

func TestRetryAfterFromHeaders_FallsBackToRateLimitResetHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("x-ratelimit-reset-requests", "1.5s")
	h.Set("x-ratelimit-reset-tokens", "6m0s")

	got := retryAfterFromHeaders(h)
	if got != 6*time.Minute {
		t.Errorf("retryAfterFromHeaders = %v, want 6m0s (the longer of the two reset headers)", got)
	}
}

func TestRetryAfterFromHeaders_NoHeadersReturnsZero(t *testing.T) {
	if got := retryAfterFromHeaders(http.Header{}); got != 0 {
		t.Errorf("retryAfterFromHeaders = %v, want 0", got)
	}
}
