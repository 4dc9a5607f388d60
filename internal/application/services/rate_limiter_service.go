package services

import (
	"context"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// RateLimiterService caps requests per device in fixed windows.
type RateLimiterService struct {
	repo      ports.RateLimitRepository
	limit     int
	window    time.Duration
	keyPrefix string
	logger    *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) ports.RequestLimiter {
	limit := 30
	w := time.Minute
	kp := "ratelimit:device"
	if cfg != nil {
		if cfg.RequestsPerWindow > 0 {
			limit = cfg.RequestsPerWindow
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			kp = cfg.KeyPrefix
		}
	}
	return &RateLimiterService{repo: repo, limit: limit, window: w, keyPrefix: kp, logger: logger}
}

// Allow fails open when the counter store is unavailable.
func (s *RateLimiterService) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	count, windowStart, err := s.repo.IncrementWindow(ctx, subject, s.window, s.keyPrefix, s.window*2)
	reset := windowStart.Add(s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("rate limiter: failed to increment window")
		}
		return true, s.limit, s.limit, reset, err
	}
	if count > s.limit {
		return false, 0, s.limit, reset, nil
	}
	return true, s.limit - count, s.limit, reset, nil
}

var _ ports.RequestLimiter = (*RateLimiterService)(nil)
