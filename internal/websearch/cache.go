package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

var (
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ayurwell_websearch_cache_hits_total",
			Help: "Total number of web search cache hits",
		},
	)
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ayurwell_websearch_cache_misses_total",
			Help: "Total number of web search cache misses",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis. It returns nil when Redis cannot be reached;
// callers then run without caching.
func NewRedis(cfg RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn("failed to connect to Redis, web search will work without caching", zap.Error(err))
		client.Close()
		return nil
	}
	logger.Info("connected to Redis cache", zap.String("addr", cfg.Addr))
	return client
}

// Cached wraps a provider with a Redis result cache. Cache failures never
// fail a search.
type Cached struct {
	next   graph.WebSearchProvider
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next graph.WebSearchProvider, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cached) Available() bool { return c.next.Available() }

func (c *Cached) Search(ctx context.Context, query string, maxResults int) ([]graph.WebResult, error) {
	key := cacheKey(query, maxResults)
	if results, ok := c.get(ctx, key); ok {
		cacheHitsTotal.Inc()
		return results, nil
	}
	cacheMissesTotal.Inc()

	results, err := c.next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := c.set(ctx, key, results); err != nil {
			c.logger.Warn("failed to cache web search results", zap.Error(err))
		}
	}
	return results, nil
}

func (c *Cached) get(ctx context.Context, key string) ([]graph.WebResult, bool) {
	if c.rdb == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var results []graph.WebResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *Cached) set(ctx context.Context, key string, results []graph.WebResult) error {
	if c.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

func cacheKey(query string, maxResults int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("websearch:%d:%s", maxResults, hex.EncodeToString(sum[:12]))
}
