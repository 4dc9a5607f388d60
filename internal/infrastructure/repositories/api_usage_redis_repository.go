package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	usageWindow    = 24 * time.Hour
	usageRetention = 400 * 24 * time.Hour
)

// APIUsageRedisRepository counts external API calls in daily windows.
type APIUsageRedisRepository struct {
	r      redis.Cmdable
	prefix string
	logger *logrus.Logger
	now    func() time.Time
}

func NewAPIUsageRedisRepository(r redis.Cmdable, prefix string, logger *logrus.Logger) ports.APIUsageCounter {
	if prefix == "" {
		prefix = "apiusage"
	}
	return &APIUsageRedisRepository{r: r, prefix: prefix, logger: logger, now: time.Now}
}

func (repo *APIUsageRedisRepository) key(kind string, at time.Time) string {
	windowStart := at.UTC().Truncate(usageWindow)
	return fmt.Sprintf("%s:%s:%d", repo.prefix, kind, windowStart.Unix())
}

// Record adds count calls to today's window and returns the new daily total.
func (repo *APIUsageRedisRepository) Record(ctx context.Context, kind string, count int) (int64, error) {
	key := repo.key(kind, repo.now())
	pipe := repo.r.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(count))
	pipe.Expire(ctx, key, usageRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		if repo.logger != nil {
			repo.logger.WithFields(logrus.Fields{"kind": kind, "count": count}).WithError(err).Warn("redis: failed to record api usage")
		}
		return 0, fmt.Errorf("failed to record api usage: %w", err)
	}
	return incr.Val(), nil
}

// Total returns the calls recorded in the window containing at.
func (repo *APIUsageRedisRepository) Total(ctx context.Context, kind string, at time.Time) (int64, error) {
	n, err := repo.r.Get(ctx, repo.key(kind, at)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read api usage: %w", err)
	}
	return n, nil
}

var _ ports.APIUsageCounter = (*APIUsageRedisRepository)(nil)
