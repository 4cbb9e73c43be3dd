package relevance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// --- Mocks ---

type mockModelStore struct {
	mu     sync.Mutex
	models map[string]scoring.Model
}

func newMockModelStore() *mockModelStore {
	return &mockModelStore{models: map[string]scoring.Model{}}
}

func (m *mockModelStore) Save(_ context.Context, model *scoring.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID()] = *model
	return nil
}

func (m *mockModelStore) Get(_ context.Context, id string) (scoring.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	model, ok := m.models[id]
	if !ok {
		return scoring.Model{}, domain.ErrModelNotFound
	}
	return model, nil
}

func (m *mockModelStore) List(_ context.Context) ([]scoring.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]scoring.Model, 0, len(m.models))
	for _, model := range m.models {
		out = append(out, model)
	}
	return out, nil
}

func (m *mockModelStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.models, id)
	return nil
}

type mockCaseStore struct {
	cases map[string]scoring.TestCase
}

func (m *mockCaseStore) Get(_ context.Context, queryID string) (scoring.TestCase, error) {
	tc, ok := m.cases[queryID]
	if !ok {
		return scoring.TestCase{}, domain.ErrTestCaseNotFound
	}
	return tc, nil
}

func (m *mockCaseStore) List(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.cases))
	for id := range m.cases {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockSearcher struct {
	mu     sync.Mutex
	ranked map[string][]string // keyed by query text
	bodies []query.Tree
	err    error
}

func (m *mockSearcher) SearchIDs(_ context.Context, body query.Tree, _ int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	text := queryText(body)
	return m.ranked[text], nil
}

func queryText(body query.Tree) string {
	q, _ := body.Sub("query")
	if fs, ok := q.Sub("function_score"); ok {
		q, _ = fs.Sub("query")
	}
	mm, _ := q.Sub("multi_match")
	text, _ := mm["query"].(string)
	return text
}

func weights(fields ...string) []scoring.FieldWeight {
	out := make([]scoring.FieldWeight, len(fields))
	for i, f := range fields {
		out[i] = scoring.FieldWeight{Field: f, Weight: 1, Boost: 2}
	}
	return out
}

// --- Tests ---

func TestSingleActiveInvariant(t *testing.T) {
	store := newMockModelStore()
	svc := New(store, &mockCaseStore{}, &mockSearcher{}, nil, nil)
	ctx := context.Background()

	ids := []string{"m1", "m2", "m3"}
	for _, id := range ids {
		_, err := svc.CreateModel(ctx, id, "model "+id, weights("diagnosis"), nil)
		require.NoError(t, err)
	}

	// Sequential activations: exactly one active at every step, the last one.
	for _, id := range []string{"m2", "m3", "m1", "m3"} {
		require.NoError(t, svc.SetActiveModel(ctx, id))

		models, err := svc.ListModels(ctx)
		require.NoError(t, err)
		activeCount := 0
		for _, m := range models {
			if m.IsActive() {
				activeCount++
				assert.Equal(t, id, m.ID())
			}
		}
		assert.Equal(t, 1, activeCount)
	}
}

func TestFirstModelBecomesActive(t *testing.T) {
	svc := New(newMockModelStore(), &mockCaseStore{}, &mockSearcher{}, nil, nil)

	m, err := svc.CreateModel(context.Background(), "", "claims default", weights("diagnosis"), nil)
	require.NoError(t, err)
	assert.True(t, m.IsActive())
	assert.NotEmpty(t, m.ID())
}

func TestDeleteActiveModelRejected(t *testing.T) {
	svc := New(newMockModelStore(), &mockCaseStore{}, &mockSearcher{}, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateModel(ctx, "m1", "active", weights("diagnosis"), nil)
	require.NoError(t, err)

	err = svc.DeleteModel(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrActiveModelDelete)

	// Non-active models delete fine.
	_, err = svc.CreateModel(ctx, "m2", "inactive", weights("treatment"), nil)
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteModel(ctx, "m2"))
}

func TestUpdateBumpsVersionInPlace(t *testing.T) {
	svc := New(newMockModelStore(), &mockCaseStore{}, &mockSearcher{}, nil, nil)
	ctx := context.Background()

	m, err := svc.CreateModel(ctx, "m1", "v1", weights("diagnosis"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Version())

	updated, err := svc.UpdateModel(ctx, "m1", "v2", weights("treatment"), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version())
	assert.Equal(t, "treatment", updated.Weights()[0].Field)

	stored, err := svc.GetModel(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version())
}

func TestScoringFunctionValidationAtDefinitionTime(t *testing.T) {
	_, err := scoring.NewFieldValueFactor("", 1.2, "log1p", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = scoring.NewFieldValueFactor("amount", 1.2, "cosine", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = scoring.NewDecay("sigmoid", "claim_date", "now", "30d", "", 0.5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = scoring.NewDecay(scoring.DecayGauss, "claim_date", nil, "30d", "", 0.5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = scoring.NewScriptScore("", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = scoring.NewRandomScore(0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	fvf, err := scoring.NewFieldValueFactor("amount", 1.2, "log1p", 1)
	require.NoError(t, err)
	assert.Equal(t, scoring.TypeFieldValueFactor, fvf.Type())
}

func TestApplyScoringInjectsBoostsAndWrapsFunctions(t *testing.T) {
	store := newMockModelStore()
	svc := New(store, &mockCaseStore{}, &mockSearcher{}, nil, nil)
	ctx := context.Background()

	fvf, err := scoring.NewFieldValueFactor("amount", 1.2, "log1p", 1)
	require.NoError(t, err)
	_, err = svc.CreateModel(ctx, "m1", "boosted",
		[]scoring.FieldWeight{{Field: "diagnosis", Weight: 1, Boost: 3}},
		[]scoring.Function{fvf},
	)
	require.NoError(t, err)

	body := query.Tree{
		"query": query.Tree{
			"bool": query.Tree{
				"must": []any{
					query.Tree{"match": query.Tree{"diagnosis": "viêm gan"}},
					query.Tree{"match": query.Tree{"status": "approved"}},
				},
			},
		},
	}

	scored, err := svc.ApplyScoring(ctx, body, "")
	require.NoError(t, err)

	q, _ := scored.Sub("query")
	fs, ok := q.Sub("function_score")
	require.True(t, ok, "expected function_score wrap")
	assert.Equal(t, "multiply", fs["score_mode"])
	assert.Equal(t, "multiply", fs["boost_mode"])

	inner, _ := fs.Sub("query")
	b, _ := inner.Sub("bool")
	must := b["must"].([]any)

	diag, _ := query.AsTree(must[0])
	matchNode, _ := diag.Sub("match")
	boosted, _ := matchNode.Sub("diagnosis")
	assert.Equal(t, "viêm gan", boosted["query"])
	assert.Equal(t, 3.0, boosted["boost"])

	// Unweighted fields stay in short form.
	status, _ := query.AsTree(must[1])
	statusMatch, _ := status.Sub("match")
	assert.Equal(t, "approved", statusMatch["status"])

	// Original body untouched.
	origQ, _ := body.Sub("query")
	_, wrapped := origQ.Sub("function_score")
	assert.False(t, wrapped)
}

func TestEvaluateModelMetrics(t *testing.T) {
	store := newMockModelStore()
	cases := &mockCaseStore{cases: map[string]scoring.TestCase{
		"q1": {
			QueryID:   "q1",
			QueryText: "health insurance claim",
			Expected: []scoring.ExpectedResult{
				{DocumentID: "d1", ExpectedRank: 1},
				{DocumentID: "d2", ExpectedRank: 2},
			},
		},
		"q2": {
			QueryID:   "q2",
			QueryText: "hospital invoice",
			Expected: []scoring.ExpectedResult{
				{DocumentID: "d9", ExpectedRank: 1},
			},
		},
	}}
	searcher := &mockSearcher{ranked: map[string][]string{
		"health insurance claim": {"d1", "dx", "d2"},
		"hospital invoice":       {"dx", "dy"},
	}}
	svc := New(store, cases, searcher, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateModel(ctx, "m1", "eval", weights("diagnosis"), nil)
	require.NoError(t, err)

	perf, err := svc.EvaluateModel(ctx, "m1", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, perf.TestCases)
	assert.Zero(t, perf.Skipped)

	// q1: precision@10 = 2/10, recall = 1, mrr = 1. q2: all zero.
	assert.InDelta(t, 0.1, perf.Precision, 1e-9)
	assert.InDelta(t, 0.5, perf.Recall, 1e-9)
	assert.InDelta(t, 0.5, perf.MRR, 1e-9)
	assert.InDelta(t, 2*perf.Precision*perf.Recall/(perf.Precision+perf.Recall), perf.F1, 1e-9)
	assert.False(t, perf.EvaluatedAt.IsZero())

	// Snapshot overwritten on the stored model.
	m, err := svc.GetModel(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, m.Performance())
	assert.InDelta(t, perf.MRR, m.Performance().MRR, 1e-9)
}

func TestEvaluateModelSkipsErroringCases(t *testing.T) {
	store := newMockModelStore()
	cases := &mockCaseStore{cases: map[string]scoring.TestCase{
		"good": {
			QueryID:   "good",
			QueryText: "insurance card",
			Expected:  []scoring.ExpectedResult{{DocumentID: "d1", ExpectedRank: 1}},
		},
	}}
	searcher := &mockSearcher{ranked: map[string][]string{"insurance card": {"d1"}}}
	svc := New(store, cases, searcher, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateModel(ctx, "m1", "eval", weights("diagnosis"), nil)
	require.NoError(t, err)

	perf, err := svc.EvaluateModel(ctx, "m1", []string{"good", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, perf.TestCases)
	assert.Equal(t, 1, perf.Skipped)
	assert.InDelta(t, 1.0, perf.MRR, 1e-9)
}

func TestEvaluateModelUsesConfiguredFields(t *testing.T) {
	store := newMockModelStore()
	cases := &mockCaseStore{cases: map[string]scoring.TestCase{
		"q1": {
			QueryID:   "q1",
			QueryText: "insurance",
			Expected:  []scoring.ExpectedResult{{DocumentID: "d1", ExpectedRank: 1}},
		},
	}}
	searcher := &mockSearcher{ranked: map[string][]string{"insurance": {"d1"}}}
	svc := New(store, cases, searcher, []string{"diagnosis", "notes"}, nil)
	ctx := context.Background()

	// The weighted field is outside the eval field list, so the multi_match
	// fields pass through unrewritten.
	_, err := svc.CreateModel(ctx, "m1", "eval", weights("patient_name"), nil)
	require.NoError(t, err)
	_, err = svc.EvaluateModel(ctx, "m1", []string{"q1"})
	require.NoError(t, err)

	searcher.mu.Lock()
	defer searcher.mu.Unlock()
	require.Len(t, searcher.bodies, 1)
	q, _ := searcher.bodies[0].Sub("query")
	if fs, ok := q.Sub("function_score"); ok {
		q, _ = fs.Sub("query")
	}
	mm, _ := q.Sub("multi_match")
	assert.Equal(t, []any{"diagnosis", "notes"}, mm["fields"])
}

func TestApplyScoringWithoutActiveModel(t *testing.T) {
	svc := New(newMockModelStore(), &mockCaseStore{}, &mockSearcher{}, nil, nil)

	_, err := svc.ApplyScoring(context.Background(), query.Tree{"query": query.Tree{}}, "")
	assert.ErrorIs(t, err, domain.ErrNoActiveModel)
}

func TestNDCGBinaryGains(t *testing.T) {
	relevant := map[string]struct{}{"a": {}, "b": {}}

	perfect := ndcgAt([]string{"a", "b", "x"}, relevant, 10)
	assert.InDelta(t, 1.0, perfect, 1e-9)

	swapped := ndcgAt([]string{"x", "a", "b"}, relevant, 10)
	assert.Less(t, swapped, perfect)
	assert.Greater(t, swapped, 0.0)

	none := ndcgAt([]string{"x", "y"}, relevant, 10)
	assert.Zero(t, none)
}

func TestUpstreamErrorSkipsAllCases(t *testing.T) {
	store := newMockModelStore()
	cases := &mockCaseStore{cases: map[string]scoring.TestCase{
		"q1": {
			QueryID:   "q1",
			QueryText: "x",
			Expected:  []scoring.ExpectedResult{{DocumentID: "d1", ExpectedRank: 1}},
		},
	}}
	searcher := &mockSearcher{err: errors.New("backend down")}
	svc := New(store, cases, searcher, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateModel(ctx, "m1", "eval", weights("diagnosis"), nil)
	require.NoError(t, err)

	perf, err := svc.EvaluateModel(ctx, "m1", nil)
	require.NoError(t, err)
	assert.Zero(t, perf.TestCases)
	assert.Equal(t, 1, perf.Skipped)
}
