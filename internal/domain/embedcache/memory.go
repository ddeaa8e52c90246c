package embedcache

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryOption applies a configuration option to Memory.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the cache. When full, the oldest entry is evicted.
// maxEntries <= 0 means unbounded, which is the default.
func WithMaxEntries(maxEntries int) MemoryOption {
	return func(m *Memory) {
		m.maxEntries = maxEntries
	}
}

// node is one entry in insertion order.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

type entry struct {
	vec  []float32
	node *node // nil in unbounded mode
}

// Memory is the in-process Cache.
// For bounded mode it keeps a FIFO list of keys so eviction is O(1).
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	head, tail *node
	maxEntries int
	nodePool   sync.Pool

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{}
	for _, opt := range opts {
		opt(m)
	}
	m.entries = make(map[string]entry)
	m.nodePool = sync.Pool{New: func() interface{} { return &node{} }}
	return m
}

// Get returns a copy of the cached vector.
func (m *Memory) Get(_ context.Context, key string) ([]float32, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	if len(e.vec) == 0 {
		return nil, true, ErrCorrupt
	}
	return clone(e.vec), true, nil
}

// Put stores a copy of vec if key is new.
func (m *Memory) Put(_ context.Context, key string, vec []float32) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return nil
	}

	e := entry{vec: clone(vec)}
	if m.maxEntries > 0 {
		if len(m.entries) >= m.maxEntries {
			m.evictOldest()
		}
		n := m.nodePool.Get().(*node)
		n.key = key
		if m.tail == nil {
			m.head = n
		} else {
			m.tail.next = n
		}
		m.tail = n
		e.node = n
	}
	m.entries[key] = e
	return nil
}

// evictOldest drops the head of the list. Must be called with m.mu held.
func (m *Memory) evictOldest() {
	n := m.head
	if n == nil {
		return
	}
	delete(m.entries, n.key)
	m.head = n.next
	if m.head == nil {
		m.tail = nil
	}
	n.reset()
	m.nodePool.Put(n)
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	m.head, m.tail = nil, nil
	return nil
}

// Len reports the number of entries.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Stats reports lookup counters since creation.
func (m *Memory) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
