package facets

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/truongngoctrac/claims-search/internal/domain/facet"
)

// rawAgg mirrors the backend aggregation shapes this planner can emit:
// a bucketed aggregation, possibly wrapped by filter and nested layers.
type rawAgg struct {
	DocCount             *int64          `json:"doc_count"`
	DocCountErrorBound   int64           `json:"doc_count_error_upper_bound"`
	SumOtherDocCount     int64           `json:"sum_other_doc_count"`
	Buckets              json.RawMessage `json:"buckets"`
	Inner                *rawAgg         `json:"facet"`
}

type rawBucket struct {
	Key         any      `json:"key"`
	KeyAsString string   `json:"key_as_string"`
	DocCount    int64    `json:"doc_count"`
	From        *float64 `json:"from"`
	To          *float64 `json:"to"`
}

// ParseResults reconstructs one uniform result per facet config from the raw
// aggregations section, transparently unwrapping the sibling-filter and
// nested layers added at build time. A facet missing from the response is
// skipped rather than failing the batch.
func (p *Planner) ParseResults(
	raw map[string]json.RawMessage, configs []facet.Config,
) ([]facet.Result, error) {
	results := make([]facet.Result, 0, len(configs))
	for i := range configs {
		cfg := &configs[i]
		section, ok := raw[cfg.Field()]
		if !ok {
			continue
		}

		var agg rawAgg
		if err := json.Unmarshal(section, &agg); err != nil {
			return nil, fmt.Errorf("parse facet %q: %w", cfg.Field(), err)
		}

		// Unwrap filter/nested layers until the bucketed aggregation.
		node := &agg
		for node.Buckets == nil && node.Inner != nil {
			node = node.Inner
		}
		if node.Buckets == nil {
			continue
		}

		buckets, err := parseBuckets(node.Buckets)
		if err != nil {
			return nil, fmt.Errorf("parse facet %q buckets: %w", cfg.Field(), err)
		}

		results = append(results, facet.Result{
			Field:                 cfg.Field(),
			FacetType:             cfg.FacetType(),
			Buckets:               buckets,
			CardinalityErrorBound: node.DocCountErrorBound,
		})
	}
	return results, nil
}

func parseBuckets(raw json.RawMessage) ([]facet.ResultBucket, error) {
	var rawBuckets []rawBucket
	if err := json.Unmarshal(raw, &rawBuckets); err != nil {
		// Keyed form: map of key to bucket.
		var keyed map[string]rawBucket
		if err2 := json.Unmarshal(raw, &keyed); err2 != nil {
			return nil, err
		}
		for key, b := range keyed {
			b.KeyAsString = key
			rawBuckets = append(rawBuckets, b)
		}
	}

	buckets := make([]facet.ResultBucket, len(rawBuckets))
	for i, b := range rawBuckets {
		buckets[i] = facet.ResultBucket{
			Key:      bucketKey(b),
			DocCount: b.DocCount,
			From:     b.From,
			To:       b.To,
		}
	}
	return buckets, nil
}

func bucketKey(b rawBucket) string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	switch k := b.Key.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", k)
	}
}
