// Package rediscache stores embedding vectors in Redis so several service
// instances share one cache.
package rediscache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okian/promptmatch/internal/domain/embedcache"
)

const (
	defaultPrefix = "promptmatch:emb:"
	scanBatch     = 500
)

// Cache implements embedcache.Cache. Vectors are little-endian float32.
type Cache struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ embedcache.Cache = (*Cache)(nil)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithPrefix namespaces every key.
func WithPrefix(p string) Option {
	return func(c *Cache) {
		if p != "" {
			c.prefix = p
		}
	}
}

// WithTTL expires entries. Zero keeps them until Clear.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string, opts ...Option) (*Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts...), nil
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if key == "" {
		return nil, false, embedcache.ErrEmptyKey
	}
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	v, err := Decode(b)
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, vec []float32) error {
	if key == "" {
		return embedcache.ErrEmptyKey
	}
	if len(vec) == 0 {
		return embedcache.ErrEmptyVector
	}
	// SETNX keeps entries write-once across instances.
	if err := c.rdb.SetNX(ctx, c.prefix+key, Encode(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	return c.scan(ctx, func(keys []string) error {
		return c.rdb.Del(ctx, keys...).Err()
	})
}

func (c *Cache) Len(ctx context.Context) (int, error) {
	n := 0
	err := c.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

// Close releases the client.
func (c *Cache) Close() error { return c.rdb.Close() }

func (c *Cache) scan(ctx context.Context, fn func([]string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return fmt.Errorf("redis scan batch: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Encode packs vec as little-endian float32.
func Encode(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

// Decode reverses Encode. Empty or misaligned payloads are corrupt.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, embedcache.ErrCorrupt
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
