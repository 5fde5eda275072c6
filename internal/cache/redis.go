package cache

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// VectorStore is the surface the query engine caches vectors behind. The
// in-process VectorCache is the default implementation; RedisVectorCache
// substitutes a shared Redis instance when several daemons should reuse
// each other's query embeddings.
type VectorStore interface {
	Get(key string) ([]float32, bool)
	Put(key string, vector []float32)
	Len() int
	Clear()
}

// RedisVectorCacheConfig configures the Redis-backed vector cache.
type RedisVectorCacheConfig struct {
	// Addr is the Redis host:port.
	Addr string

	// Password is optional.
	Password string

	// DB selects the Redis logical database.
	DB int

	// KeyPrefix namespaces this cache's keys. Default "memorizer:vec:".
	KeyPrefix string

	// TTL bounds entry lifetime; Redis handles eviction, so this replaces
	// the in-process cache's max-entries bound. Zero means no expiry.
	TTL time.Duration

	// OpTimeout bounds each Redis round trip. Default 250ms.
	OpTimeout time.Duration
}

// RedisVectorCache is a VectorStore backed by Redis. Every operation is
// best-effort: an unreachable server degrades to cache misses rather than
// failing queries.
type RedisVectorCache struct {
	client *redis.Client
	cfg    RedisVectorCacheConfig
	logger *slog.Logger
}

// NewRedisVectorCache connects a vector cache to Redis.
func NewRedisVectorCache(cfg RedisVectorCacheConfig, logger *slog.Logger) *RedisVectorCache {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "memorizer:vec:"
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisVectorCache{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "redis-vector-cache"),
	}
}

// Get returns the cached vector for key, if present and decodable.
func (c *RedisVectorCache) Get(key string) ([]float32, bool) {
	ctx, cancel := c.opContext()
	defer cancel()

	data, err := c.client.Get(ctx, c.cfg.KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("redis get failed", "error", err)
		}
		return nil, false
	}

	vector, ok := decodeVector(data)
	if !ok {
		// Drop the undecodable entry so it stops costing a round trip.
		delCtx, delCancel := c.opContext()
		defer delCancel()
		_ = c.client.Del(delCtx, c.cfg.KeyPrefix+key).Err()
		return nil, false
	}

	return vector, true
}

// Put stores vector under key, with the configured TTL.
func (c *RedisVectorCache) Put(key string, vector []float32) {
	ctx, cancel := c.opContext()
	defer cancel()

	if err := c.client.Set(ctx, c.cfg.KeyPrefix+key, encodeVector(vector), c.cfg.TTL).Err(); err != nil {
		c.logger.Debug("redis set failed", "error", err)
	}
}

// Len returns the number of keys under this cache's prefix.
func (c *RedisVectorCache) Len() int {
	ctx, cancel := c.opContext()
	defer cancel()

	var count int
	iter := c.client.Scan(ctx, 0, c.cfg.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.logger.Debug("redis scan failed", "error", err)
	}
	return count
}

// Clear removes every key under this cache's prefix.
func (c *RedisVectorCache) Clear() {
	ctx, cancel := c.opContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.cfg.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Debug("redis del failed", "error", err)
		}
	}
}

// Ping verifies connectivity, for startup health checks.
func (c *RedisVectorCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *RedisVectorCache) Close() error {
	return c.client.Close()
}

func (c *RedisVectorCache) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.cfg.OpTimeout)
}

// encodeVector packs a vector as little-endian float32 bits.
func encodeVector(vector []float32) []byte {
	data := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}

// decodeVector unpacks encodeVector's output.
func decodeVector(data []byte) ([]float32, bool) {
	if len(data)%4 != 0 {
		return nil, false
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, true
}
