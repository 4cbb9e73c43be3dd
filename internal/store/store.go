// Package store defines the collaborator contracts for persistence: the
// cache store, the document store backing scoring models and test cases,
// usage counters, and the fire-and-forget analytics sink.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound signals an absent key in any store implementation.
var ErrKeyNotFound = errors.New("store: key not found")

// KV is the cache store: get/set/evict with a TTL per entry.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

// Hash holds field-value records; the document store for models, test cases
// and judgments is built on it plus a Set-based id index.
type Hash interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	Del(ctx context.Context, key string) error
}

// Set maintains id indexes for listing.
type Set interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// List holds append-only records (judgments).
type List interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Counter increments node-shared usage counters.
type Counter interface {
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// Publisher is the analytics sink: publish never returns data to the core.
type Publisher interface {
	Publish(ctx context.Context, stream string, fields map[string]string) error
}

// Store aggregates everything the composition root wires once.
type Store interface {
	KV
	Hash
	Set
	List
	Counter
	Publisher
	Ping(ctx context.Context) error
	Close()
}
