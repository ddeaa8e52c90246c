// Package dedupe tracks keys that have already been handed off for work.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen keys so the same work is not queued twice.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key so a failed hand-off can be retried.
	Unrecord(ctx context.Context, key string)
	Size() int64
}

// Set is a Deduper backed by a map. When bounded, the oldest key is
// forgotten first.
type Set struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // ring of keys in insertion order when bounded
	head    int
	maxSize int
}

var _ Deduper = (*Set)(nil)

// New creates a Set. Unbounded unless WithMaxSize is given.
func New(opts ...Option) *Set {
	s := &Set{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSize > 0 {
		s.order = make([]string, 0, s.maxSize)
	}
	return s
}

// SeenAndRecord is atomic with respect to concurrent callers.
func (s *Set) SeenAndRecord(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	if s.maxSize <= 0 {
		return false
	}
	if len(s.order) < s.maxSize {
		s.order = append(s.order, key)
		return false
	}
	// Ring is full: overwrite the oldest slot. Slots cleared by Unrecord evict nothing.
	old := s.order[s.head]
	if old != "" {
		delete(s.seen, old)
	}
	s.order[s.head] = key
	s.head = (s.head + 1) % s.maxSize
	return false
}

// Unrecord removes key. The ring slot is cleared lazily.
func (s *Set) Unrecord(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; !ok {
		return
	}
	delete(s.seen, key)
	for i, k := range s.order {
		if k == key {
			s.order[i] = ""
			break
		}
	}
}

// Size returns the number of recorded keys.
func (s *Set) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.seen))
}
