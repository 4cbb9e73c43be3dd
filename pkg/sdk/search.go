package claimsearch

import (
	"context"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
)

// Search runs the orchestrated pipeline: language fan-out, facet planning,
// query optimization, relevance scoring, and concurrent augmentation.
// Augmentation failures degrade to absent sections, reported in
// SearchResponse.Degraded.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	configs, err := facetConfigsToDomain(req.Facets)
	if err != nil {
		return nil, err
	}

	domReq := searchsvc.Request{
		Text:            req.Text,
		Query:           queryToTree(req.Query),
		Fields:          req.Fields,
		From:            req.From,
		Size:            req.Size,
		Highlight:       req.Highlight,
		ModelID:         req.ModelID,
		SourceLanguage:  req.SourceLanguage,
		CrossLanguage:   &req.CrossLanguage,
		TargetLanguages: req.TargetLanguages,
		NativeBoost:     &req.NativeBoost,
		Facets:          configs,
		Filters:         facetFiltersToDomain(req.Filters),
		Suggest:         suggestSourcesToDomain(req.SuggestSources),
		SuggestSize:     req.SuggestSize,
	}
	if req.UserID != "" {
		domReq.User = &domsuggest.UserContext{UserID: req.UserID}
	}

	resp, err := c.search.Search(ctx, domReq)
	if err != nil {
		return nil, err
	}
	return responseFromDomain(resp), nil
}

// FacetedSearch runs the strict facet entry point: facet errors are hard
// failures instead of degraded sections.
func (c *Client) FacetedSearch(
	ctx context.Context, base Query, facets []FacetConfig, filters []FacetFilter, size int,
) (Hits, []FacetResult, error) {
	configs, err := facetConfigsToDomain(facets)
	if err != nil {
		return Hits{}, nil, err
	}

	hits, parsed, err := c.search.FacetedSearch(ctx, queryToTree(base), configs, facetFiltersToDomain(filters), size)
	if err != nil {
		return Hits{}, nil, err
	}

	results := make([]FacetResult, len(parsed))
	for i, f := range parsed {
		buckets := make([]FacetBucket, len(f.Buckets))
		for j, b := range f.Buckets {
			buckets[j] = FacetBucket{Key: b.Key, DocCount: b.DocCount, From: b.From, To: b.To}
		}
		results[i] = FacetResult{Field: f.Field, Type: string(f.FacetType), Buckets: buckets}
	}
	return hitsFromDomain(hits), results, nil
}

// BatchSearch executes several raw queries in a single backend round trip.
// Each query is optimized independently; a failure in one slot is reported
// in that slot's Err and does not fail the batch.
func (c *Client) BatchSearch(ctx context.Context, queries []Query) ([]BatchResult, error) {
	trees := make([]query.Tree, len(queries))
	for i, q := range queries {
		trees[i] = queryToTree(q)
	}

	results, err := c.search.BatchSearch(ctx, trees)
	if err != nil {
		return nil, err
	}

	out := make([]BatchResult, len(results))
	for i, res := range results {
		out[i] = BatchResult{Hits: hitsFromDomain(res.Hits), Err: res.Err}
	}
	return out, nil
}

// Suggest returns ranked query completions from the given sources. userID
// may be empty; it enables the personalized source.
func (c *Client) Suggest(
	ctx context.Context, text string, sources []SuggestSource, userID string, size int,
) ([]Suggestion, error) {
	var user *domsuggest.UserContext
	if userID != "" {
		user = &domsuggest.UserContext{UserID: userID}
	}

	candidates, err := c.suggest.GetSuggestions(ctx, text, suggestSourcesToDomain(sources), user, size)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, len(candidates))
	for i, cand := range candidates {
		out[i] = Suggestion{
			Text: cand.Text, Score: cand.Score, Source: string(cand.Source), Frequency: cand.Frequency,
		}
	}
	return out, nil
}

// TrackSelection records that the user picked a suggestion for a query.
func (c *Client) TrackSelection(ctx context.Context, queryText, chosen string) error {
	return c.suggest.TrackSelection(ctx, queryText, chosen)
}

// DetectLanguage runs script-based language detection on the text.
func (c *Client) DetectLanguage(text string) (LanguageInfo, error) {
	d, err := c.languages.DetectLanguage(text)
	if err != nil {
		return LanguageInfo{}, err
	}
	return languageInfoFromDetection(d), nil
}

// Translate translates text between two configured languages using the
// registered dictionaries. Unknown terms pass through unchanged.
func (c *Client) Translate(text, source, target string) (string, error) {
	return c.languages.Translate(text, source, target)
}

// OptimizeQuery rewrites a raw query through the rule set. It returns the
// optimized query, the names of the applied rules, and the estimated
// improvement percentage.
func (c *Client) OptimizeQuery(q Query) (Query, []string, float64) {
	res := c.optimizer.Optimize(queryToTree(q))
	return Query(res.Tree), res.Applied, res.ImprovementPercent
}
