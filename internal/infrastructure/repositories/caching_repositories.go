package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	"github.com/avatarctic/voter-email/go/internal/core/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func voterKey(id uuid.UUID) string { return "voter:id:" + id.String() }

// CachingVoterRepository decorates a VoterRepository with cache-aside reads. Concurrent misses
// for the same voter share one database load.
type CachingVoterRepository struct {
	inner ports.VoterRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingVoterRepository(inner ports.VoterRepository, cache ports.Cache, ttl time.Duration) ports.VoterRepository {
	return &CachingVoterRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingVoterRepository) GetByID(ctx context.Context, id uuid.UUID) (*voter.Voter, error) {
	key := voterKey(id)
	if v, ok := cacheGet[voter.Voter](c.cache, ctx, key); ok {
		return v, nil
	}
	res, err, _ := sf.Do(key, func() (any, error) {
		v, err := c.inner.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, key, v, c.ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	loaded, ok := res.(*voter.Voter)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	// Callers mutate the voter, so each gets its own copy.
	cp := *loaded
	return &cp, nil
}

func (c *CachingVoterRepository) Update(ctx context.Context, v *voter.Voter) error {
	if err := c.inner.Update(ctx, v); err != nil {
		if c.cache != nil {
			_ = c.cache.Delete(ctx, voterKey(v.ID))
		}
		return err
	}
	cacheSetSilently(c.cache, ctx, voterKey(v.ID), v, c.ttl)
	return nil
}

func (c *CachingVoterRepository) ClearCachedEmail(ctx context.Context, emailID uuid.UUID, normalized string, except uuid.UUID) ([]uuid.UUID, error) {
	ids, err := c.inner.ClearCachedEmail(ctx, emailID, normalized, except)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		for _, id := range ids {
			_ = c.cache.Delete(ctx, voterKey(id))
		}
	}
	return ids, nil
}

var _ ports.VoterRepository = (*CachingVoterRepository)(nil)

// singleflight group for coalescing cache-miss loads in-process
var sf singleflight.Group
