// Package cache stores generated answers keyed by the prompt that produced
// them, in process or in Redis.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store is a string cache shared by pipeline requests.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// LRUCache is a thread-safe LRU cache with TTL support
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	lru      *list.List
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with the given capacity and TTL
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get retrieves a value from the cache
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if c.now().After(ent.expiresAt) {
		c.lru.Remove(elem)
		delete(c.items, key)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return ent.value, true
}

// Set adds or updates a value in the cache
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		return
	}

	elem := c.lru.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem

	// Evict oldest if over capacity
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}
}

// Len returns the number of items in the cache
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// HashKey creates a cache key from a prompt string
func HashKey(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}

// MemoryStore adapts an LRUCache to Store.
type MemoryStore struct {
	lru *LRUCache[string]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: NewLRUCache[string](capacity, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.lru.Set(key, value)
	return nil
}
