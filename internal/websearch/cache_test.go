package websearch

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

type stubProvider struct {
	results []graph.WebResult
	err     error
	calls   int
}

func (s *stubProvider) Available() bool { return true }

func (s *stubProvider) Search(context.Context, string, int) ([]graph.WebResult, error) {
	s.calls++
	return s.results, s.err
}

func TestCachedWithoutRedisPassesThrough(t *testing.T) {
	next := &stubProvider{results: []graph.WebResult{{Content: "Neem", URL: "u"}}}
	c := NewCached(next, nil, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		got, err := c.Search(context.Background(), "q", 3)
		require.NoError(t, err)
		assert.Equal(t, next.results, got)
	}
	assert.Equal(t, 2, next.calls)
	assert.True(t, c.Available())
}

func TestCachedUnreachableRedisDegrades(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	next := &stubProvider{results: []graph.WebResult{{Content: "Amla", URL: "u"}}}
	c := NewCached(next, rdb, time.Minute, zap.NewNop())

	got, err := c.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, next.results, got)
}

func TestCachedPropagatesProviderError(t *testing.T) {
	next := &stubProvider{err: assert.AnError}
	_, err := NewCached(next, nil, 0, zap.NewNop()).Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewRedisUnreachable(t *testing.T) {
	assert.Nil(t, NewRedis(RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop()))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("Cold Remedy ", 3), cacheKey("cold remedy", 3))
	assert.NotEqual(t, cacheKey("cold remedy", 3), cacheKey("cold remedy", 5))
}
