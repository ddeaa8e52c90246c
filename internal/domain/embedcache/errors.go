package embedcache

import "errors"

// Sentinel errors for the embedding cache.
var (
	// ErrCorrupt marks a cached entry that cannot be a valid embedding.
	// Write-once storage should make this impossible; callers treat it as a
	// permanent failure for the current request.
	ErrCorrupt = errors.New("embedding cache entry corrupt")
	// ErrEmptyVector is returned by Put for zero-length vectors.
	ErrEmptyVector = errors.New("embedding vector is empty")
	// ErrEmptyKey is returned for blank keys.
	ErrEmptyKey = errors.New("embedding cache key is empty")
)
