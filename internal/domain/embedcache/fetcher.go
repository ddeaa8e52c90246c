package embedcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/promptmatch/pkg/logger"
	"github.com/okian/promptmatch/pkg/metrics"
)

// ComputeFunc produces the vector for a key on a cache miss.
type ComputeFunc func(ctx context.Context) ([]float32, error)

// FetcherOption applies a configuration option to Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger used for cache write failures.
func WithLogger(l logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// WithComputeTimeout bounds a shared compute call. Zero leaves the bound to
// the ComputeFunc itself.
func WithComputeTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.computeTimeout = d
		}
	}
}

// Fetcher implements compute-or-fetch on top of a Cache. Concurrent misses for
// the same key share one compute call; different keys never block each other.
// The shared call is detached from the caller that started it, so one caller
// giving up never fails the others waiting on the same key.
type Fetcher struct {
	cache          Cache
	group          singleflight.Group
	log            logger.Logger
	computeTimeout time.Duration
}

// NewFetcher wraps cache.
func NewFetcher(cache Cache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{cache: cache, log: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the vector for key, computing and storing it on a miss.
// hit reports whether the value came from the cache. A corrupt entry is
// reported as ErrCorrupt and never recomputed over.
func (f *Fetcher) Fetch(ctx context.Context, key string, compute ComputeFunc) (vec []float32, hit bool, err error) {
	kind := string(KindOf(key))

	vec, ok, err := f.cache.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCorrupt):
		metrics.RecordErrorByComponent("embedcache", "corrupt")
		return nil, false, fmt.Errorf("%s: %w", key, ErrCorrupt)
	case err != nil:
		// A broken backend degrades to computing every time.
		metrics.RecordErrorByComponent("embedcache", "get")
		f.log.Warn(ctx, "embedding cache read failed", logger.String("key", key), logger.Error(err))
	case ok:
		metrics.RecordCacheHit(kind)
		return vec, true, nil
	}
	metrics.RecordCacheMiss(kind)

	ch := f.group.DoChan(key, func() (interface{}, error) {
		sctx := context.WithoutCancel(ctx)
		if f.computeTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, f.computeTimeout)
			defer cancel()
		}
		v, err := compute(sctx)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, ErrEmptyVector
		}
		// The size gauge is refreshed by stats reads; counting here would
		// scan remote backends on every miss.
		if err := f.cache.Put(sctx, key, v); err != nil {
			metrics.RecordErrorByComponent("embedcache", "put")
			f.log.Warn(sctx, "embedding cache write failed", logger.String("key", key), logger.Error(err))
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return clone(res.Val.([]float32)), false, nil
	}
}

// Clear empties the underlying cache.
func (f *Fetcher) Clear(ctx context.Context) error {
	if err := f.cache.Clear(ctx); err != nil {
		return err
	}
	metrics.RecordCacheClear()
	metrics.UpdateCacheSize(0)
	return nil
}
