package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"go.uber.org/zap"
)

// RecordCache is a Redis-backed cache of RAW fetched API pages. Filtered
// output is never cached: filtering always re-runs so pseudonym numbering
// stays local to one redaction session.
type RecordCache struct {
	client *redis.Client
	config config.CacheConfig
	logger *logger.Logger
	stats  cacheStats
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	hits   int64
	misses int64
}

// Stats reports hit/miss counts for diagnostics.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a Redis-backed record cache and verifies the connection.
func New(cfg config.CacheConfig, log *logger.Logger) (*RecordCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	cache := &RecordCache{
		client: redis.NewClient(opts),
		config: cfg,
		logger: log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cache.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("record cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("default_ttl", cfg.DefaultTTL),
	)

	return cache, nil
}

// Get returns the cached raw page set for a source resource, if present.
func (c *RecordCache) Get(ctx context.Context, source, resource string) (any, bool) {
	key := c.key(source, resource)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.stats.misses++
		c.logger.Debug("cache miss", zap.String("key", key))
		return nil, false
	} else if err != nil {
		c.logger.Error("cache lookup failed", zap.Error(err))
		return nil, false
	}

	var value any
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		c.logger.Error("failed to unmarshal cached records", zap.Error(err))
		// Delete corrupted cache entry
		c.client.Del(ctx, key)
		return nil, false
	}

	c.stats.hits++
	c.logger.Debug("cache hit", zap.String("key", key))
	return value, true
}

// Set stores the raw page set for a source resource with the default TTL.
func (c *RecordCache) Set(ctx context.Context, source, resource string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal records for caching: %w", err)
	}

	key := c.key(source, resource)
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache records: %w", err)
	}

	c.logger.Debug("records cached",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Stats returns hit/miss counters for the lifetime of this cache handle.
func (c *RecordCache) Stats() Stats {
	stats := Stats{Hits: c.stats.hits, Misses: c.stats.misses}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// Clear removes every key under our prefix.
func (c *RecordCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.config.KeyPrefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	c.logger.Info("cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection.
func (c *RecordCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// key builds a stable cache key from the source and resource.
func (c *RecordCache) key(source, resource string) string {
	sum := sha256.Sum256([]byte(resource))
	return fmt.Sprintf("%s:%s:%s", c.config.KeyPrefix, source, hex.EncodeToString(sum[:])[:16])
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.Split(url, "@")
	userPart := parts[0]
	if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//") {
		parts[0] = userPart[:idx] + ":***"
	}
	return strings.Join(parts, "@")
}
