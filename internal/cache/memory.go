package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryEntries caps the in-process cache when no size is configured
const DefaultMemoryEntries = 1024

// Memory is a bounded in-process LRU used when no Valkey address is
// configured. Entries share one TTL fixed at construction.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a cache holding at most size entries for ttl each.
// ttl <= 0 keeps entries until they are evicted by size.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value by key
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

// Set stores a copy of value. The per-call ttl is ignored in favour of the
// cache-wide one.
func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// Len returns the number of live entries
func (m *Memory) Len() int {
	return m.lru.Len()
}
