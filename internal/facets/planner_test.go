package facets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

func mustTerms(t *testing.T, field string, size int) facet.Config {
	t.Helper()
	cfg, err := facet.NewTerms(field, size, facet.OrderCountDesc, nil)
	require.NoError(t, err)
	return cfg
}

func TestBuildAggregationsNoFiltersNoWrapping(t *testing.T) {
	p := NewPlanner()
	configs := []facet.Config{mustTerms(t, "status", 10)}

	aggs, err := p.BuildAggregations(configs, nil)
	require.NoError(t, err)

	status, ok := aggs["status"].(query.Tree)
	require.True(t, ok)
	assert.Contains(t, status, "terms")
	assert.NotContains(t, status, "filter")
}

func TestBuildAggregationsWrapsWithSiblingFiltersOnly(t *testing.T) {
	p := NewPlanner()
	configs := []facet.Config{
		mustTerms(t, "status", 10),
		mustTerms(t, "policy_type", 10),
	}
	active := []facet.Filter{
		{Field: "status", Values: []string{"approved"}},
		{Field: "policy_type", Values: []string{"inpatient"}},
	}

	aggs, err := p.BuildAggregations(configs, active)
	require.NoError(t, err)

	// status is scoped by the policy_type selection but never by its own.
	status, ok := aggs["status"].(query.Tree)
	require.True(t, ok)
	inner, ok := status["filter"].(query.Tree)
	require.True(t, ok)
	raw, err := json.Marshal(inner)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "policy_type")
	assert.NotContains(t, string(raw), `"status"`)

	wrapped, ok := status["aggs"].(query.Tree)
	require.True(t, ok)
	assert.Contains(t, wrapped, innerAggKey)
}

func TestPostFilterCombinesAllSelections(t *testing.T) {
	p := NewPlanner()
	active := []facet.Filter{
		{Field: "status", Values: []string{"approved", "pending"}},
		{Field: "amount", Range: &facet.Bound{From: ptr(100.0), To: ptr(500.0)}},
	}

	pf := p.PostFilter(active)
	require.NotNil(t, pf)

	boolClause, ok := pf["bool"].(query.Tree)
	require.True(t, ok)
	clauses, ok := boolClause["filter"].([]any)
	require.True(t, ok)
	assert.Len(t, clauses, 2)

	assert.Nil(t, p.PostFilter(nil))
}

func TestRangeAggregationShape(t *testing.T) {
	cfg, err := facet.NewRange("amount", []facet.Bound{
		{To: ptr(1000000.0)},
		{From: ptr(1000000.0), To: ptr(5000000.0)},
		{From: ptr(5000000.0)},
	})
	require.NoError(t, err)

	p := NewPlanner()
	aggs, err := p.BuildAggregations([]facet.Config{cfg}, nil)
	require.NoError(t, err)

	amount, ok := aggs["amount"].(query.Tree)
	require.True(t, ok)
	rangeAgg, ok := amount["range"].(query.Tree)
	require.True(t, ok)
	ranges, ok := rangeAgg["ranges"].([]any)
	require.True(t, ok)
	assert.Len(t, ranges, 3)
}

func TestDateHistogramAggregationShape(t *testing.T) {
	cfg, err := facet.NewDateHistogram("claim_date", facet.DateHistogramParams{
		Interval: "month",
		Format:   "yyyy-MM",
		TimeZone: "Asia/Ho_Chi_Minh",
	})
	require.NoError(t, err)

	p := NewPlanner()
	aggs, err := p.BuildAggregations([]facet.Config{cfg}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(aggs["claim_date"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"calendar_interval":"month"`)
	assert.Contains(t, string(raw), `"time_zone":"Asia/Ho_Chi_Minh"`)
}

func TestNestedAggregationShape(t *testing.T) {
	cfg, err := facet.NewNested("line_items", 20, facet.NestedParams{
		Path:     "line_items",
		SubField: "service_code",
	})
	require.NoError(t, err)

	p := NewPlanner()
	aggs, err := p.BuildAggregations([]facet.Config{cfg}, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(aggs["line_items"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"nested":{"path":"line_items"}`)
	assert.Contains(t, string(raw), "line_items.service_code")
}

// Two facets, the first one filtered: the filtered facet keeps its full
// bucket set because its own selection never scopes its own counts.
func TestParseResultsSiblingIndependence(t *testing.T) {
	p := NewPlanner()
	configs := []facet.Config{
		mustTerms(t, "category", 10),
		mustTerms(t, "status", 10),
	}

	raw := map[string]json.RawMessage{
		// category counts only scoped by the status selection.
		"category": json.RawMessage(`{
			"doc_count": 30,
			"facet": {
				"doc_count_error_upper_bound": 0,
				"sum_other_doc_count": 0,
				"buckets": [
					{"key": "A", "doc_count": 10},
					{"key": "B", "doc_count": 10},
					{"key": "C", "doc_count": 10}
				]
			}
		}`),
		"status": json.RawMessage(`{
			"doc_count": 10,
			"facet": {
				"doc_count_error_upper_bound": 2,
				"sum_other_doc_count": 5,
				"buckets": [{"key": "approved", "doc_count": 10}]
			}
		}`),
	}

	results, err := p.ParseResults(raw, configs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	category := results[0]
	assert.Equal(t, "category", category.Field)
	require.Len(t, category.Buckets, 3)
	for _, b := range category.Buckets {
		assert.Equal(t, int64(10), b.DocCount)
	}

	status := results[1]
	assert.Equal(t, int64(2), status.CardinalityErrorBound)
}

func TestParseResultsUnwrappedAndKeyedBuckets(t *testing.T) {
	p := NewPlanner()
	configs := []facet.Config{mustTerms(t, "status", 10)}

	// No sibling filter layer: buckets at the top level.
	raw := map[string]json.RawMessage{
		"status": json.RawMessage(`{
			"doc_count_error_upper_bound": 0,
			"sum_other_doc_count": 0,
			"buckets": {
				"low": {"to": 100.0, "doc_count": 4},
				"high": {"from": 100.0, "doc_count": 7}
			}
		}`),
	}

	results, err := p.ParseResults(raw, configs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Buckets, 2)
}

func TestParseResultsSkipsMissingFacet(t *testing.T) {
	p := NewPlanner()
	configs := []facet.Config{
		mustTerms(t, "status", 10),
		mustTerms(t, "missing", 10),
	}
	raw := map[string]json.RawMessage{
		"status": json.RawMessage(`{"buckets": [{"key": "approved", "doc_count": 1}]}`),
	}

	results, err := p.ParseResults(raw, configs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "status", results[0].Field)
}

func TestFilterClauseCombinators(t *testing.T) {
	orFilter := facet.Filter{Field: "status", Values: []string{"approved", "pending"}, Combinator: facet.CombinatorOr}
	andFilter := facet.Filter{Field: "tags", Values: []string{"urgent", "reviewed"}, Combinator: facet.CombinatorAnd}

	orRaw, err := json.Marshal(filterClause(orFilter))
	require.NoError(t, err)
	assert.Contains(t, string(orRaw), `"terms"`)

	andRaw, err := json.Marshal(filterClause(andFilter))
	require.NoError(t, err)
	assert.Contains(t, string(andRaw), `"bool"`)
	assert.Contains(t, string(andRaw), `"term"`)
}

func ptr(f float64) *float64 { return &f }
