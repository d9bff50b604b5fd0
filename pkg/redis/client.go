// Package redis provides a thin wrapper around go-redis/v9 with connection
// resolution from config or a redis URL file, cache get/set/delete
// operations, pattern-based key invalidation and the set/hash reads used by
// the posting store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// legacyUser is the username RedisToGo embeds in its URLs. Those servers
// only understand password AUTH.
const legacyUser = "redistogo"

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// ResolveOptions turns cfg into go-redis options. URL wins over URLFile,
// which wins over Addr. Failures wrap ErrConfigMissing or ErrMalformedURI.
func ResolveOptions(cfg config.RedisConfig) (*redis.Options, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" && cfg.URLFile != "" {
		data, err := os.ReadFile(cfg.URLFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrConfigMissing, cfg.URLFile, err)
		}
		raw = strings.Join(strings.Fields(string(data)), "")
		if raw == "" {
			return nil, fmt.Errorf("%w: %s is empty", apperrors.ErrConfigMissing, cfg.URLFile)
		}
	}
	if raw == "" {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("%w: no redis url, url file or addr", apperrors.ErrConfigMissing)
		}
		return &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}, nil
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedURI, err)
	}
	if opts.Username == legacyUser {
		opts.Username = ""
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return opts, nil
}

// NewClient creates a Redis client and verifies the connection with a PING.
// A rejected AUTH wraps ErrAuthRejected; any other PING failure wraps
// ErrStoreUnavailable.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	opts, err := ResolveOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrAuthRejected, opts.Addr, err)
		}
		return nil, fmt.Errorf("%w: redis ping %s failed: %v", apperrors.ErrStoreUnavailable, opts.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the string value for the given key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value with the given TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// SMembers returns the members of the set stored at key. A missing key is an
// empty set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

// HGetEach reads field from every hash in keys in a single pipeline. The
// result is aligned with keys; a missing hash or field yields "".
func (c *Client) HGetEach(ctx context.Context, keys []string, field string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGet(ctx, key, field)
	}
	if _, err := pipe.Exec(ctx); err != nil && !IsNilError(err) {
		return nil, fmt.Errorf("pipelined hget of %d keys: %w", len(keys), err)
	}
	values := make([]string, len(keys))
	for i, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil {
			if IsNilError(err) {
				continue
			}
			return nil, fmt.Errorf("hget %s %s: %w", keys[i], field, err)
		}
		values[i] = v
	}
	return values, nil
}

// FlushByPattern scans for keys matching the glob pattern and deletes them,
// returning the number of keys removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	return deleted, nil
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func isAuthError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"WRONGPASS", "NOAUTH", "invalid password", "invalid username-password"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
