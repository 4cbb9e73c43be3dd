package optimizer

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

func TestOptimizeIsIdempotent(t *testing.T) {
	opt := New(nil)

	tree := query.Tree{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"script": map[string]any{"source": "doc['amount'].value > 0"}},
					map[string]any{"match": map[string]any{"diagnosis": "viêm phổi"}},
					map[string]any{"wildcard": map[string]any{"provider_name": "vin*"}},
				},
			},
		},
		"size": 5000,
		"sort": []any{
			map[string]any{"claim_date": "desc"},
			map[string]any{"amount": "desc"},
			map[string]any{"status": "asc"},
			map[string]any{"_score": "desc"},
		},
	}

	first := opt.Optimize(tree)
	second := opt.Optimize(first.Tree)

	assert.Equal(t, first.Tree, second.Tree)
	assert.Empty(t, second.Applied)
	assert.Zero(t, second.ImprovementPercent)
}

func TestWildcardToPrefix(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{"wildcard": map[string]any{"facility_name": "cho ray*"}},
	})

	q, ok := res.Tree.Sub("query")
	require.True(t, ok)
	assert.NotContains(t, q, "wildcard")
	prefix, ok := q.Sub("prefix")
	require.True(t, ok)
	assert.Equal(t, "cho ray", prefix["facility_name"])
}

func TestWildcardWithInnerMetacharUntouched(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{"wildcard": map[string]any{"claim_number": "a?b*"}},
	})

	q, _ := res.Tree.Sub("query")
	wc, ok := q.Sub("wildcard")
	require.True(t, ok)
	assert.Equal(t, "a?b*", wc["claim_number"])
	assert.NotContains(t, q, "prefix")
}

func TestWildcardObjectFormKeepsBoost(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{
			"wildcard": map[string]any{
				"diagnosis": map[string]any{"value": "diab*", "boost": 2.0},
			},
		},
	})

	q, _ := res.Tree.Sub("query")
	prefix, ok := q.Sub("prefix")
	require.True(t, ok)
	inner, ok := prefix.Sub("diagnosis")
	require.True(t, ok)
	assert.Equal(t, "diab", inner["value"])
	assert.Equal(t, 2.0, inner["boost"])
}

func TestBoolReorderPreservesClauseMultiset(t *testing.T) {
	opt := New(nil)

	original := []any{
		query.Tree{"script": query.Tree{"source": "1"}},
		query.Tree{"wildcard": query.Tree{"notes": "x?y"}},
		query.Tree{"match": query.Tree{"status": "approved"}},
		query.Tree{"match": query.Tree{"status": "approved"}},
	}
	tree := query.Tree{
		"query": query.Tree{"bool": query.Tree{"must": append([]any{}, original...)}},
	}

	res := opt.Optimize(tree)

	q, _ := res.Tree.Sub("query")
	b, _ := q.Sub("bool")
	reordered := b["must"].([]any)
	require.Len(t, reordered, len(original))

	// Cheapest clause (plain match) must now lead.
	first, _ := query.AsTree(reordered[0])
	assert.Contains(t, first, "match")

	assert.ElementsMatch(t, original, reordered)
}

func TestSourceProjectionOnlyWhenAbsent(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{"query": map[string]any{"match_all": map[string]any{}}})
	assert.Contains(t, res.Tree, "_source")

	explicit := opt.Optimize(query.Tree{
		"query":   map[string]any{"match_all": map[string]any{}},
		"_source": []any{"claim_number"},
	})
	assert.Equal(t, []any{"claim_number"}, explicit.Tree["_source"])
}

func TestClampsAreRecorded(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{"match": map[string]any{"diagnosis": "flu"}},
		"size":  500,
		"highlight": map[string]any{
			"fragment_size":       400,
			"number_of_fragments": 10,
			"fields":              map[string]any{"notes": map[string]any{"fragment_size": 300}},
		},
		"aggs": map[string]any{
			"by_status":   map[string]any{"terms": map[string]any{"field": "status", "size": 5000}},
			"by_province": map[string]any{"terms": map[string]any{"field": "province"}},
		},
	})

	size, _ := res.Tree.Int("size")
	assert.Equal(t, 100, size)

	hl, _ := res.Tree.Sub("highlight")
	fragSize, _ := hl.Int("fragment_size")
	assert.Equal(t, 150, fragSize)
	frags, _ := hl.Int("number_of_fragments")
	assert.Equal(t, 3, frags)

	aggs, _ := res.Tree.Sub("aggs")
	byStatus, _ := aggs.Sub("by_status")
	terms, _ := byStatus.Sub("terms")
	termsSize, _ := terms.Int("size")
	assert.Equal(t, 100, termsSize)

	byProvince, _ := aggs.Sub("by_province")
	terms2, _ := byProvince.Sub("terms")
	defaulted, _ := terms2.Int("size")
	assert.Equal(t, 50, defaulted)

	// Every lossy change shows up in Applied.
	joined := ""
	for _, n := range res.Applied {
		joined += n + "\n"
	}
	assert.Contains(t, joined, "clamped result size to 100")
	assert.Contains(t, joined, "fragment_size to 150")
	assert.Contains(t, joined, "fragments to 3")
	assert.Contains(t, joined, `"by_status"`)
	assert.Contains(t, joined, `"by_province"`)
}

func TestPanickingRuleIsSkipped(t *testing.T) {
	rules := append(defaultRules(), Rule{
		Name:     "broken",
		Priority: 5,
		Transform: func(_ query.Tree) (query.Tree, []string) {
			panic("boom")
		},
	})
	opt := NewWithRules(rules, nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{"wildcard": map[string]any{"diagnosis": "flu*"}},
	})

	q, _ := res.Tree.Sub("query")
	assert.Contains(t, q, "prefix")
	for _, note := range res.Applied {
		assert.NotContains(t, note, "broken")
	}
}

func TestImprovementPercentClamped(t *testing.T) {
	opt := New(nil)

	res := opt.Optimize(query.Tree{
		"query": map[string]any{"wildcard": map[string]any{"diagnosis": "flu*"}},
		"size":  10000,
	})
	assert.GreaterOrEqual(t, res.ImprovementPercent, 0.0)
	assert.LessOrEqual(t, res.ImprovementPercent, 100.0)
	assert.Greater(t, res.ImprovementPercent, 0.0)
}

func TestRulesSortedAscendingByPriority(t *testing.T) {
	rules := defaultRules()
	priorities := make([]int, len(rules))
	for i, r := range rules {
		priorities[i] = r.Priority
	}
	assert.True(t, sort.IntsAreSorted(priorities))
}
