// Package embedcache memoises embedding vectors by content hash.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Kind namespaces cache keys by what was embedded.
type Kind string

const (
	KindImage Kind = "img"
	KindText  Kind = "txt"
)

// Cache is a write-once store of embedding vectors.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns a copy of the vector for key. ok is false on a miss.
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	// Put stores vec under key unless key already exists. Existing entries are never overwritten.
	Put(ctx context.Context, key string, vec []float32) error
	// Clear drops every entry. It is the only eviction path callers can trigger.
	Clear(ctx context.Context) error
	// Len reports the number of entries.
	Len(ctx context.Context) (int, error)
}

// Key derives the cache key for content: "<kind>:<sha256 hex>".
func Key(kind Kind, content []byte) string {
	sum := sha256.Sum256(content)
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}

// KindOf extracts the kind prefix of a key, or "" when absent.
func KindOf(key string) Kind {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return Kind(key[:i])
	}
	return ""
}

func clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
