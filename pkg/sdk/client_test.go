package claimsearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

func TestNew_RequiresElasticsearchAddress(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch address required")
}

func TestNew_RequiresRedisAddress(t *testing.T) {
	_, err := New(context.Background(), WithElasticsearch("http://localhost:9200"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis address required")
}

func TestOptions_Apply(t *testing.T) {
	cfg := &clientConfig{}
	opts := []Option{
		WithElasticsearch("http://es:9200"),
		WithBasicAuth("user", "pass"),
		WithIndex("claims_v2"),
		WithRedis("redis:6379"),
		WithSuggestCacheTTL(time.Minute),
		WithLanguage("vi", "vietnamese"),
		WithDictionary("vi", "en", map[string]string{"bảo hiểm": "insurance"}),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	assert.Equal(t, []string{"http://es:9200"}, cfg.esAddrs)
	assert.Equal(t, "user", cfg.esUsername)
	assert.Equal(t, "claims_v2", cfg.index)
	assert.Equal(t, []string{"redis:6379"}, cfg.redisAddrs)
	assert.Equal(t, time.Minute, cfg.suggestCacheTTL)
	require.Len(t, cfg.languages, 1)
	assert.Equal(t, "vi", cfg.languages[0].code)
	require.Len(t, cfg.dictionaries, 1)
	assert.Equal(t, "insurance", cfg.dictionaries[0].terms["bảo hiểm"])
}

func TestFacetConfigToDomain_Terms(t *testing.T) {
	cfg, err := facetConfigToDomain(FacetConfig{
		Field:   "status",
		Type:    "terms",
		Size:    20,
		Include: []string{"approved"},
	})
	require.NoError(t, err)
	assert.Equal(t, "status", cfg.Field())
	assert.Equal(t, facet.Terms, cfg.FacetType())
	assert.Equal(t, 20, cfg.Size())
	require.NotNil(t, cfg.TermsParams())
	assert.Equal(t, []string{"approved"}, cfg.TermsParams().Include)
}

func TestFacetConfigToDomain_UnknownType(t *testing.T) {
	_, err := facetConfigToDomain(FacetConfig{Field: "status", Type: "histogram"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownFacetType))
}

func TestFunctionsToDomain(t *testing.T) {
	fns, err := functionsToDomain([]ScoringFunction{
		{Type: "field_value_factor", Field: "claim_amount", Factor: 1.2, Modifier: "log1p"},
		{Type: "decay", Kind: "gauss", Field: "claim_date", Origin: "now", Scale: "30d", Rate: 0.5},
	})
	require.NoError(t, err)
	require.Len(t, fns, 2)
	assert.Equal(t, scoring.TypeFieldValueFactor, fns[0].Type())
	assert.Equal(t, scoring.TypeDecay, fns[1].Type())
}

func TestFunctionsToDomain_UnknownType(t *testing.T) {
	_, err := functionsToDomain([]ScoringFunction{{Type: "magic"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestModelFromDomain(t *testing.T) {
	m, err := scoring.NewModel("m1", "claims ranking", []scoring.FieldWeight{
		{Field: "diagnosis", Weight: 2.0},
	}, nil)
	require.NoError(t, err)
	m.SetActive(true)
	m.SetPerformance(scoring.Performance{Precision: 0.8, TestCases: 5})

	out := modelFromDomain(&m)
	assert.Equal(t, "m1", out.ID)
	assert.True(t, out.Active)
	require.Len(t, out.Weights, 1)
	assert.Equal(t, "diagnosis", out.Weights[0].Field)
	require.NotNil(t, out.Performance)
	assert.InDelta(t, 0.8, out.Performance.Precision, 1e-9)
}
