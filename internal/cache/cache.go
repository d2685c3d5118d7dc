// Package cache provides the Redis-backed recommendation response
// cache. Entries are keyed per (user, request params) and invalidated
// when the user's inventory changes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"
)

// ErrMiss is returned when no cached entry exists for a key. A
// disabled cache misses everything.
var ErrMiss = errors.New("cache miss")

const (
	recommendKeyPrefix = "larder:recommend:"
	userIndexPrefix    = "larder:recommend:idx:"

	dialTimeout  = 2 * time.Second
	ioTimeout    = 1 * time.Second
	maxIdleConns = 3
	maxActive    = 10
	idleTimeout  = 240 * time.Second
)

// ResponseCache caches serialized recommendation responses in Redis.
// A zero address disables it; every operation then degrades to a miss
// or a no-op so the service never depends on Redis being up.
type ResponseCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

// New creates a response cache against the given Redis address. An
// empty address returns a disabled cache.
func New(addr string, ttl time.Duration) *ResponseCache {
	if addr == "" {
		return &ResponseCache{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	pool := &redis.Pool{
		MaxIdle:     maxIdleConns,
		MaxActive:   maxActive,
		IdleTimeout: idleTimeout,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialConnectTimeout(dialTimeout),
				redis.DialReadTimeout(ioTimeout),
				redis.DialWriteTimeout(ioTimeout),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	return &ResponseCache{pool: pool, ttl: ttl}
}

// Enabled reports whether a Redis backend is configured.
func (c *ResponseCache) Enabled() bool {
	return c.pool != nil
}

// Close releases the connection pool.
func (c *ResponseCache) Close() error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Close()
}

// Ping verifies the Redis connection.
func (c *ResponseCache) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Key builds the cache key for a user's recommendation request. The
// params are hashed over their canonical JSON form so equal requests
// share an entry.
func (c *ResponseCache) Key(userID string, params any) string {
	h := fnv.New64a()
	if data, err := json.Marshal(params); err == nil {
		h.Write(data)
	}
	return recommendKeyPrefix + userID + ":" + strconv.FormatUint(h.Sum64(), 36)
}

// Get returns the cached payload for the key, or ErrMiss.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.pool == nil {
		return nil, ErrMiss
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get redis conn: %w", err)
	}
	defer conn.Close()

	payload, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return payload, nil
}

// Set stores a payload under the key for the cache TTL and records the
// key in the user's invalidation index.
func (c *ResponseCache) Set(ctx context.Context, userID, key string, payload []byte) error {
	if c.pool == nil {
		return nil
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer conn.Close()

	seconds := int(c.ttl.Seconds())
	idx := userIndexPrefix + userID

	_ = conn.Send("SETEX", key, seconds, payload)
	_ = conn.Send("SADD", idx, key)
	_ = conn.Send("EXPIRE", idx, seconds)
	if _, err := redis.DoContext(conn, ctx, ""); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// InvalidateUser drops every cached recommendation for the user. Called
// on inventory and history writes so stale rankings never outlive a
// state change by more than one in-flight request.
func (c *ResponseCache) InvalidateUser(ctx context.Context, userID string) error {
	if c.pool == nil {
		return nil
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer conn.Close()

	idx := userIndexPrefix + userID
	keys, err := redis.Strings(redis.DoContext(conn, ctx, "SMEMBERS", idx))
	if err != nil && !errors.Is(err, redis.ErrNil) {
		return fmt.Errorf("read invalidation index for %s: %w", userID, err)
	}

	args := redis.Args{}.Add(idx)
	for _, k := range keys {
		args = args.Add(k)
	}
	if _, err := redis.DoContext(conn, ctx, "DEL", args...); err != nil {
		return fmt.Errorf("invalidate %s: %w", userID, err)
	}

	log.Debug().Str("user_id", userID).Int("entries", len(keys)).Msg("Invalidated cached recommendations")
	return nil
}
