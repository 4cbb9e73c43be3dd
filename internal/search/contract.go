package search

import (
	"context"
	"encoding/json"

	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsearch "github.com/truongngoctrac/claims-search/internal/domain/search"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
	"github.com/truongngoctrac/claims-search/internal/language"
	"github.com/truongngoctrac/claims-search/internal/optimizer"
)

// Backend executes assembled request bodies against the index. ExecuteMulti
// runs several bodies in one round trip, preserving order; per-body failures
// land in the error slice.
type Backend interface {
	Execute(ctx context.Context, body query.Tree) (domsearch.BackendResult, error)
	ExecuteMulti(ctx context.Context, bodies []query.Tree) ([]domsearch.BackendResult, []error, error)
}

// QueryOptimizer rewrites a request body before execution.
type QueryOptimizer interface {
	Optimize(tree query.Tree) optimizer.Result
}

// Scorer injects the scoring model's boosts and functions into a body.
type Scorer interface {
	ApplyScoring(ctx context.Context, body query.Tree, modelID string) (query.Tree, error)
}

// FacetPlanner builds aggregations and parses their results.
type FacetPlanner interface {
	BuildAggregations(configs []facet.Config, active []facet.Filter) (query.Tree, error)
	PostFilter(active []facet.Filter) query.Tree
	ParseResults(raw map[string]json.RawMessage, configs []facet.Config) ([]facet.Result, error)
}

// FacetUsage records facet selections for configuration tuning.
type FacetUsage interface {
	RecordQuery(ctx context.Context, active []facet.Filter)
}

// Suggester produces the ranked suggestion list.
type Suggester interface {
	GetSuggestions(ctx context.Context, text string, configs []domsuggest.Config, user *domsuggest.UserContext, size int) ([]domsuggest.Candidate, error)
}

// Expander builds the multi-language query union.
type Expander interface {
	Expand(req language.Request) (language.Result, error)
}

// Analytics receives fire-and-forget search events.
type Analytics interface {
	Publish(ctx context.Context, stream string, fields map[string]string) error
}
