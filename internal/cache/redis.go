package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection parameters for the redis backend.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "innkeep:"
)

// RedisClient implements Store on top of go-redis. Keys are namespaced under
// the innkeep: prefix.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings the server so misconfiguration surfaces
// at startup.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisClient{client: client}, nil
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client *redis.Client) *RedisClient {
	if client == nil {
		return nil
	}
	return &RedisClient{client: client}
}

func (c *RedisClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IncrementWithTTL increments key and starts its expiry window on the first
// hit. It returns the count and the time left in the window.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c == nil || c.client == nil {
		return 0, 0, errors.New("redis: client not initialised")
	}
	if window <= 0 {
		window = time.Minute
	}
	key = c.prefixed(key)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: increment: %w", err)
	}
	if count == 1 {
		if err := c.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: expire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := c.client.PTTL(ctx, key).Result()
	switch {
	case err != nil:
		return count, window, nil
	case ttl < 0:
		// A key without expiry would count forever.
		_ = c.client.PExpire(ctx, key, window).Err()
		return count, window, nil
	}
	return count, ttl, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return errors.New("redis: client not initialised")
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.prefixed(key), value, ttl).Err()
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, errors.New("redis: client not initialised")
	}
	value, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes keys, ignoring missing ones.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil {
		return errors.New("redis: client not initialised")
	}
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, c.prefixed(key))
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// Ping reports whether the server is reachable.
func (c *RedisClient) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis: client not initialised")
	}
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) prefixed(key string) string {
	normalized := normalizeKey(key)
	if strings.HasPrefix(normalized, redisKeyPrefix) {
		return normalized
	}
	return normalizeKey(redisKeyPrefix + normalized)
}

// normalizeKey collapses repeated colons so callers can join segments freely.
func normalizeKey(key string) string {
	if key == "" {
		return key
	}
	var builder strings.Builder
	builder.Grow(len(key))
	prevColon := false
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if ch == ':' {
			if prevColon {
				continue
			}
			prevColon = true
		} else {
			prevColon = false
		}
		builder.WriteByte(ch)
	}
	return builder.String()
}
