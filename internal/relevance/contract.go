package relevance

import (
	"context"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// ModelStore persists scoring models.
type ModelStore interface {
	Save(ctx context.Context, m *scoring.Model) error
	Get(ctx context.Context, id string) (scoring.Model, error)
	List(ctx context.Context) ([]scoring.Model, error)
	Delete(ctx context.Context, id string) error
}

// TestCaseStore reads judged query test cases for offline evaluation.
type TestCaseStore interface {
	Get(ctx context.Context, queryID string) (scoring.TestCase, error)
	List(ctx context.Context) ([]string, error)
}

// HitSearcher runs a query against the live index and returns ranked ids.
type HitSearcher interface {
	SearchIDs(ctx context.Context, body query.Tree, size int) ([]string, error)
}
