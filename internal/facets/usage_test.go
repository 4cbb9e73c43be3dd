package facets

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/store"
)

type memUsageStore struct {
	counters map[string]int64
	hashes   map[string]map[string]string
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{
		counters: make(map[string]int64),
		hashes:   make(map[string]map[string]string),
	}
}

func (m *memUsageStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.counters[key] += delta
	return m.counters[key], nil
}

func (m *memUsageStore) GetInt(_ context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

func (m *memUsageStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	cur, _ := strconv.ParseInt(h[field], 10, 64)
	cur += delta
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *memUsageStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok || len(h) == 0 {
		return nil, store.ErrKeyNotFound
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func TestRefinementRate(t *testing.T) {
	ctx := context.Background()
	s := newMemUsageStore()
	tr := NewTracker(s, nil)

	// 10 queries, 6 of them filtered on status.
	for i := 0; i < 10; i++ {
		var active []facet.Filter
		if i < 6 {
			active = []facet.Filter{{Field: "status", Values: []string{"approved"}}}
		}
		tr.RecordQuery(ctx, active)
	}

	rate, err := tr.RefinementRate(ctx, "status")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, rate, 1e-9)

	rate, err = tr.RefinementRate(ctx, "policy_type")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestRefinementRateNoTraffic(t *testing.T) {
	tr := NewTracker(newMemUsageStore(), nil)
	rate, err := tr.RefinementRate(context.Background(), "status")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestPopularValuesOrdering(t *testing.T) {
	ctx := context.Background()
	s := newMemUsageStore()
	tr := NewTracker(s, nil)

	record := func(value string, times int) {
		for i := 0; i < times; i++ {
			tr.RecordQuery(ctx, []facet.Filter{{Field: "status", Values: []string{value}}})
		}
	}
	record("approved", 5)
	record("pending", 3)
	record("rejected", 1)

	values, err := tr.PopularValues(ctx, "status", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"approved", "pending"}, values)
}

func TestOptimizeConfigurationRangeOnlyRefinement(t *testing.T) {
	ctx := context.Background()
	s := newMemUsageStore()
	tr := NewTracker(s, nil)

	// Range filters bump the refinement rate without ever writing a
	// popular-values hash; widening must still succeed.
	low, high := 0.0, 5000000.0
	for i := 0; i < 10; i++ {
		tr.RecordQuery(ctx, []facet.Filter{{Field: "amount", Range: &facet.Bound{From: &low, To: &high}}})
	}

	amount, err := facet.NewTerms("amount", 10, facet.OrderCountDesc, nil)
	require.NoError(t, err)

	optimized, notes, err := tr.OptimizeConfiguration(ctx, []facet.Config{amount})
	require.NoError(t, err)
	require.Len(t, optimized, 1)
	assert.Equal(t, 20, optimized[0].Size())
	require.Len(t, notes, 1)

	values, err := tr.PopularValues(ctx, "amount", 10)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestOptimizeConfigurationWidensRefinedFacets(t *testing.T) {
	ctx := context.Background()
	s := newMemUsageStore()
	tr := NewTracker(s, nil)

	for i := 0; i < 10; i++ {
		tr.RecordQuery(ctx, []facet.Filter{{Field: "status", Values: []string{"approved"}}})
	}

	status, err := facet.NewTerms("status", 10, facet.OrderCountDesc, nil)
	require.NoError(t, err)
	quiet, err := facet.NewTerms("policy_type", 10, facet.OrderCountDesc, nil)
	require.NoError(t, err)

	optimized, notes, err := tr.OptimizeConfiguration(ctx, []facet.Config{status, quiet})
	require.NoError(t, err)
	require.Len(t, optimized, 2)

	assert.Equal(t, 20, optimized[0].Size())
	require.NotNil(t, optimized[0].TermsParams())
	assert.Contains(t, optimized[0].TermsParams().Include, "approved")
	assert.NotEmpty(t, notes)

	// The untouched facet keeps its configuration.
	assert.Equal(t, 10, optimized[1].Size())
	assert.Nil(t, optimized[1].TermsParams())
}

func TestOptimizeConfigurationCapsAtMaxSize(t *testing.T) {
	ctx := context.Background()
	s := newMemUsageStore()
	tr := NewTracker(s, nil)

	for i := 0; i < 4; i++ {
		tr.RecordQuery(ctx, []facet.Filter{{Field: "status", Values: []string{"approved"}}})
	}

	cfg, err := facet.NewTerms("status", facet.MaxTermsSize, facet.OrderCountDesc, nil)
	require.NoError(t, err)

	optimized, _, err := tr.OptimizeConfiguration(ctx, []facet.Config{cfg})
	require.NoError(t, err)
	assert.Equal(t, facet.MaxTermsSize, optimized[0].Size())
}
