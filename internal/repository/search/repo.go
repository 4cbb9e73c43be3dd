// Package search adapts the index backend client to the domain result types
// consumed by the services.
package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsearch "github.com/truongngoctrac/claims-search/internal/domain/search"
	"github.com/truongngoctrac/claims-search/internal/es"
)

// backend is the consumer interface for the index backend client.
type backend interface {
	Search(ctx context.Context, index string, body query.Tree) (*es.Response, error)
	Msearch(ctx context.Context, index string, bodies []query.Tree) ([]*es.Response, []error, error)
	Ping(ctx context.Context) error
}

// Repo executes query trees against one index.
type Repo struct {
	backend backend
	index   string
}

// New creates a search repository bound to an index.
func New(b backend, index string) *Repo {
	return &Repo{backend: b, index: index}
}

// Ping proxies the backend availability check.
func (r *Repo) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// Execute runs one query tree and parses the full response.
func (r *Repo) Execute(ctx context.Context, body query.Tree) (domsearch.BackendResult, error) {
	res, err := r.backend.Search(ctx, r.index, body)
	if err != nil {
		return domsearch.BackendResult{}, domain.NewUpstream(es.OpSearch, err)
	}
	return toDomain(res), nil
}

// ExecuteMulti runs several trees in one round-trip, preserving order.
// Per-query failures surface as upstream errors at their index.
func (r *Repo) ExecuteMulti(ctx context.Context, bodies []query.Tree) ([]domsearch.BackendResult, []error, error) {
	responses, errs, err := r.backend.Msearch(ctx, r.index, bodies)
	if err != nil {
		return nil, nil, domain.NewUpstream(es.OpMsearch, err)
	}

	results := make([]domsearch.BackendResult, len(responses))
	outErrs := make([]error, len(responses))
	for i, res := range responses {
		if errs[i] != nil {
			outErrs[i] = domain.NewUpstream(es.OpMsearch, errs[i])
			continue
		}
		results[i] = toDomain(res)
	}
	return results, outErrs, nil
}

// SearchIDs runs a query and returns ranked document ids only, used by
// offline model evaluation.
func (r *Repo) SearchIDs(ctx context.Context, body query.Tree, size int) ([]string, error) {
	scoped := body.Clone()
	scoped["size"] = size
	scoped["_source"] = false

	res, err := r.backend.Search(ctx, r.index, scoped)
	if err != nil {
		return nil, domain.NewUpstream(es.OpSearch, err)
	}

	ids := make([]string, len(res.Hits.Hits))
	for i, h := range res.Hits.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// Suggest runs a suggest-only request and returns options per suggester name.
func (r *Repo) Suggest(ctx context.Context, suggesters query.Tree) (map[string][]domsearch.SuggestOption, error) {
	body := query.Tree{"size": 0, "suggest": suggesters}
	res, err := r.backend.Search(ctx, r.index, body)
	if err != nil {
		return nil, domain.NewUpstream(es.OpSearch, err)
	}
	return suggestToDomain(res.Suggest), nil
}

func toDomain(res *es.Response) domsearch.BackendResult {
	hits := make([]domsearch.Hit, len(res.Hits.Hits))
	for i, h := range res.Hits.Hits {
		var source map[string]any
		if len(h.Source) > 0 {
			if err := json.Unmarshal(h.Source, &source); err != nil {
				source = map[string]any{"_raw": string(h.Source)}
			}
		}
		hits[i] = domsearch.Hit{
			ID:         h.ID,
			Score:      h.Score,
			Source:     source,
			Highlights: h.Highlight,
		}
	}

	var maxScore float64
	if res.Hits.MaxScore != nil {
		maxScore = *res.Hits.MaxScore
	}

	return domsearch.BackendResult{
		Took:         time.Duration(res.Took) * time.Millisecond,
		TimedOut:     res.TimedOut,
		Hits:         domsearch.Hits{Total: res.Hits.Total.Value, MaxScore: maxScore, Items: hits},
		Aggregations: res.Aggregations,
		Suggest:      suggestToDomain(res.Suggest),
	}
}

func suggestToDomain(raw map[string][]es.SuggestEntry) map[string][]domsearch.SuggestOption {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]domsearch.SuggestOption, len(raw))
	for name, entries := range raw {
		var options []domsearch.SuggestOption
		for _, entry := range entries {
			for _, opt := range entry.Options {
				options = append(options, domsearch.SuggestOption{
					Text:  opt.Text,
					Score: opt.Score,
					Freq:  opt.Freq,
				})
			}
		}
		out[name] = options
	}
	return out
}
