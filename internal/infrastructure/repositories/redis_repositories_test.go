package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avatarctic/voter-email/go/internal/core/domain/voter"
	cache "github.com/avatarctic/voter-email/go/internal/infrastructure/redis"
	"github.com/avatarctic/voter-email/go/internal/infrastructure/repositories"
	tmocks "github.com/avatarctic/voter-email/go/test/mocks"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestAPIUsageRedisRepository_RecordAndTotal(t *testing.T) {
	_, client := setupRedis(t)
	usage := repositories.NewAPIUsageRedisRepository(client, "usage", nil)
	ctx := context.Background()

	total, err := usage.Record(ctx, "EmailVerificationAPI", 35)
	require.NoError(t, err)
	require.EqualValues(t, 35, total)
	total, err = usage.Record(ctx, "EmailVerificationAPI", 7)
	require.NoError(t, err)
	require.EqualValues(t, 42, total)

	got, err := usage.Total(ctx, "EmailVerificationAPI", time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 42, got)

	got, err = usage.Total(ctx, "EmailVerificationAPI", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestAPIUsageRedisRepository_SetsRetention(t *testing.T) {
	mr, client := setupRedis(t)
	usage := repositories.NewAPIUsageRedisRepository(client, "usage", nil)

	_, err := usage.Record(context.Background(), "kind", 1)
	require.NoError(t, err)
	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.Greater(t, mr.TTL(keys[0]), 365*24*time.Hour)
}

func TestRateLimitRedisRepository_CountsPerSubject(t *testing.T) {
	_, client := setupRedis(t)
	repo := repositories.NewRateLimitRedisRepository(client)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, _, err := repo.IncrementWindow(ctx, "device-a", time.Minute, "rl", 2*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, n)
	}
	n, start, err := repo.IncrementWindow(ctx, "device-b", time.Minute, "rl", 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, start, start.Truncate(time.Minute))
}

func TestRedisCache_RoundTripAndPrefix(t *testing.T) {
	mr, client := setupRedis(t)
	c := cache.NewRedisCache(client, "appcache")
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.True(t, mr.Exists("appcache:k"))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))
	require.False(t, mr.Exists("appcache:k"))
}

func TestCachingVoterRepository_ReadsThroughAndCopies(t *testing.T) {
	_, client := setupRedis(t)
	v := &voter.Voter{ID: uuid.New(), FirstName: "Ada"}
	inner := tmocks.NewVoterRepositoryMock(v)
	var loads int
	var mu sync.Mutex
	inner.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*voter.Voter, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		cp := *v
		return &cp, nil
	}
	repo := repositories.NewCachingVoterRepository(inner, cache.NewRedisCache(client, "test"), time.Minute)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	first.FirstName = "mutated"

	second, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", second.FirstName)
	require.Equal(t, 1, loads)
}

func TestCachingVoterRepository_InvalidatesClearedVoters(t *testing.T) {
	_, client := setupRedis(t)
	emailID := uuid.New()
	holder := &voter.Voter{ID: uuid.New()}
	holder.SetPrimaryEmail(emailID, "x@example.com")
	inner := tmocks.NewVoterRepositoryMock(holder)
	repo := repositories.NewCachingVoterRepository(inner, cache.NewRedisCache(client, "test"), time.Minute)
	ctx := context.Background()

	cached, err := repo.GetByID(ctx, holder.ID)
	require.NoError(t, err)
	require.True(t, cached.HasPrimaryEmail())

	ids, err := repo.ClearCachedEmail(ctx, emailID, "x@example.com", uuid.New())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{holder.ID}, ids)

	fresh, err := repo.GetByID(ctx, holder.ID)
	require.NoError(t, err)
	require.False(t, fresh.HasPrimaryEmail())
}

func TestCachingVoterRepository_FailedUpdateDropsEntry(t *testing.T) {
	mr, client := setupRedis(t)
	v := &voter.Voter{ID: uuid.New()}
	inner := tmocks.NewVoterRepositoryMock(v)
	repo := repositories.NewCachingVoterRepository(inner, cache.NewRedisCache(client, "test"), time.Minute)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("test:voter:id:"+v.ID.String()))

	inner.UpdateFn = func(ctx context.Context, u *voter.Voter) error { return errors.New("conflict") }
	require.Error(t, repo.Update(ctx, v))
	require.False(t, mr.Exists("test:voter:id:"+v.ID.String()))
}
