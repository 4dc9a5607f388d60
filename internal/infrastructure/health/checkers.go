package health

import (
	"context"

	"github.com/avatarctic/voter-email/go/internal/core/ports"
	infraDB "github.com/avatarctic/voter-email/go/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

// pingChecker adapts any ping function to ports.HealthChecker.
type pingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (p *pingChecker) Name() string                    { return p.name }
func (p *pingChecker) Check(ctx context.Context) error { return p.ping(ctx) }

// NewDBHealthChecker probes the postgres connection pool.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker {
	return &pingChecker{name: "database", ping: db.DB.PingContext}
}

// NewRedisHealthChecker probes the redis client used for caching and API usage counters.
func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &pingChecker{name: "redis", ping: func(ctx context.Context) error { return client.Ping(ctx).Err() }}
}
