package ports

import (
	"context"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
)

// Throttle blocks until the caller may issue one more outbound request.
// A single instance is shared by every worker that calls the same API.
type Throttle interface {
	Wait(ctx context.Context) error
}

// EmailVerifier checks one address against the validation API.
type EmailVerifier interface {
	Verify(ctx context.Context, address string) email.VerificationResult
}

// APIUsageCounter records outbound API usage for quota tracking.
type APIUsageCounter interface {
	// Record adds count calls of kind to the current window and returns the window total.
	Record(ctx context.Context, kind string, count int) (int64, error)
	// Total returns the count recorded for kind in the window containing at.
	Total(ctx context.Context, kind string, at time.Time) (int64, error)
}

// RateLimitRepository stores fixed-window request counters.
type RateLimitRepository interface {
	IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

// RequestLimiter decides whether a caller, identified by subject, may make another request.
type RequestLimiter interface {
	Allow(ctx context.Context, subject string) (allowed bool, remaining int, limit int, reset time.Time, err error)
}
