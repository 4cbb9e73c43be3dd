// Package local provides an in-process cache store for deployments without
// a shared cache, and for node-local caches that never need cross-node reads.
package local

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/truongngoctrac/claims-search/internal/store"
)

var _ store.KV = (*Cache)(nil)

// Cache implements store.KV on an expirable LRU. The entry TTL is fixed at
// construction; the per-call ttl argument is accepted for interface parity
// and ignored.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// NewCache creates a bounded in-process cache.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 4096
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a cached value or store.ErrKeyNotFound.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	return nil, store.ErrKeyNotFound
}

// Set stores a value under the cache-wide TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

// Evict removes an entry.
func (c *Cache) Evict(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}
