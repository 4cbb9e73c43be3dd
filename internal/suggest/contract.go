package suggest

import (
	"context"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsearch "github.com/truongngoctrac/claims-search/internal/domain/search"
)

// IndexSuggester runs suggest-only requests against the index backend.
type IndexSuggester interface {
	Suggest(ctx context.Context, suggesters query.Tree) (map[string][]domsearch.SuggestOption, error)
}

// TableStore backs the popular, trending, correction and personalized
// suggestion tables plus the query-frequency counter.
type TableStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
}

// CacheStore memoizes ranked responses. Stale-entry sweeping is the
// implementation's concern: server-side TTL expiry or a periodic local
// eviction pass.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

// Analytics receives fire-and-forget suggestion events.
type Analytics interface {
	Publish(ctx context.Context, stream string, fields map[string]string) error
}
