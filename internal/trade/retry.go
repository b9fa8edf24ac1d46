package trade

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxAttempts is the initial request plus three retries.
	MaxAttempts = 4

	// RateLimitBaseDelay is the backoff base for 429 responses.
	RateLimitBaseDelay = 2 * time.Second

	// UnstableBaseDelay is the backoff base for 502 responses. Upstream
	// instability recovers more slowly than a rate-limit window.
	UnstableBaseDelay = 5 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay returns the wait before retrying a retryable status. attempt
// is zero-based. For 429 a numeric Retry-After header wins, plus one second.
func backoffDelay(status, attempt int, header http.Header) time.Duration {
	switch status {
	case http.StatusTooManyRequests:
		if ra := strings.TrimSpace(header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				return time.Duration(secs+1) * time.Second
			}
		}
		return RateLimitBaseDelay << attempt
	case http.StatusBadGateway:
		return UnstableBaseDelay << attempt
	default:
		return 0
	}
}
