package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

func TestCacheRepositoryGetSetDelete(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()
	ctx := context.Background()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "recommendations:s-1", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "recommendations:s-1", []string{"algebra"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "recommendations:s-2", []string{"poetry"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "analytics:c-1", []string{"keep"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "recommendations:s-1", &out))
	assert.Equal(t, []string{"algebra"}, out)

	srv.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "recommendations:s-1", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "recommendations:s-1", []string{"algebra"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "recommendations:*"))
	assert.False(t, srv.Exists("recommendations:s-1"))
	assert.False(t, srv.Exists("recommendations:s-2"))
	assert.True(t, srv.Exists("analytics:c-1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryPing(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))
	srv.Close()
	assert.Error(t, repo.Ping(context.Background()))
}
