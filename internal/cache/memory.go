package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const backendMemory = "memory"

// Memory is a process-wide LRU store with optional per-entry TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an in-process store. size <= 0 means unbounded and
// ttl <= 0 disables expiry.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size < 0 {
		size = 0
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a copy of the stored value or ErrMiss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	val, ok := m.lru.Get(key)
	if !ok {
		cacheMissesTotal.WithLabelValues(backendMemory).Inc()
		return nil, ErrMiss
	}
	cacheHitsTotal.WithLabelValues(backendMemory).Inc()
	return append([]byte(nil), val...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}
	m.lru.Add(key, append([]byte(nil), value...))
	return nil
}

// Forget evicts key.
func (m *Memory) Forget(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	m.lru.Remove(key)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
