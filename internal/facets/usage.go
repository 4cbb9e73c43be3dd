package facets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/store"
)

// Usage counter keys. Counters are node-shared through the counter store;
// cross-node convergence is eventual and only affects tuning quality.
const (
	keyTotalQueries  = "search:facets:queries_total"
	keyFilteredFmt   = "search:facets:%s:filtered"
	keySelectionsFmt = "search:facets:%s:selections"
	keyPopularFmt    = "search:facets:%s:popular"
)

// refinementThreshold marks a facet as heavily refined; only those facets
// are touched by OptimizeConfiguration.
const refinementThreshold = 0.5

// usageStore is the consumer interface for usage counters.
type usageStore interface {
	store.Counter
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Tracker records facet usage feedback per search request.
type Tracker struct {
	store  usageStore
	logger *zap.Logger
}

// NewTracker creates a usage tracker.
func NewTracker(s usageStore, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: s, logger: logger}
}

// RecordQuery increments usage counters for one faceted search request.
// Failures are logged and swallowed: usage feedback never degrades a search.
func (t *Tracker) RecordQuery(ctx context.Context, active []facet.Filter) {
	if _, err := t.store.IncrBy(ctx, keyTotalQueries, 1); err != nil {
		t.logger.Warn("facet usage counter failed", zap.Error(err))
		return
	}
	for _, f := range active {
		if f.IsEmpty() {
			continue
		}
		if _, err := t.store.IncrBy(ctx, fmt.Sprintf(keyFilteredFmt, f.Field), 1); err != nil {
			t.logger.Warn("facet usage counter failed", zap.String("facet", f.Field), zap.Error(err))
			continue
		}
		for _, v := range f.Values {
			_, _ = t.store.IncrBy(ctx, fmt.Sprintf(keySelectionsFmt, f.Field), 1)
			_, _ = t.store.HIncrBy(ctx, fmt.Sprintf(keyPopularFmt, f.Field), v, 1)
		}
	}
}

// RefinementRate reports queries-with-filter / total-queries for one facet.
func (t *Tracker) RefinementRate(ctx context.Context, field string) (float64, error) {
	total, err := t.store.GetInt(ctx, keyTotalQueries)
	if err != nil {
		return 0, fmt.Errorf("read total queries: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	filtered, err := t.store.GetInt(ctx, fmt.Sprintf(keyFilteredFmt, field))
	if err != nil {
		return 0, fmt.Errorf("read filtered count for %s: %w", field, err)
	}
	return float64(filtered) / float64(total), nil
}

// PopularValues returns a facet's selected values ordered by selection count.
func (t *Tracker) PopularValues(ctx context.Context, field string, limit int) ([]string, error) {
	counts, err := t.store.HGetAll(ctx, fmt.Sprintf(keyPopularFmt, field))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read popular values for %s: %w", field, err)
	}

	type pair struct {
		value string
		count int64
	}
	pairs := make([]pair, 0, len(counts))
	for v, raw := range counts {
		n, _ := strconv.ParseInt(raw, 10, 64)
		pairs = append(pairs, pair{value: v, count: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].value < pairs[j].value
	})

	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	values := make([]string, len(pairs))
	for i, p := range pairs {
		values[i] = p.value
	}
	return values, nil
}

// OptimizationNote explains one configuration change.
type OptimizationNote struct {
	Field  string
	Change string
}

// OptimizeConfiguration widens heavily refined terms facets: bigger bucket
// size plus an include list of observed popular values. Explicitly
// caller-invoked; nothing rewrites configs automatically.
func (t *Tracker) OptimizeConfiguration(
	ctx context.Context, current []facet.Config,
) ([]facet.Config, []OptimizationNote, error) {
	optimized := make([]facet.Config, len(current))
	copy(optimized, current)
	var notes []OptimizationNote

	for i := range optimized {
		cfg := &optimized[i]
		if cfg.FacetType() != facet.Terms {
			continue
		}

		rate, err := t.RefinementRate(ctx, cfg.Field())
		if err != nil {
			return nil, nil, err
		}
		if rate <= refinementThreshold {
			continue
		}

		widened := cfg.Size() * 2
		if widened > facet.MaxTermsSize {
			widened = facet.MaxTermsSize
		}
		if widened != cfg.Size() {
			*cfg = cfg.WithSize(widened)
			notes = append(notes, OptimizationNote{
				Field:  cfg.Field(),
				Change: fmt.Sprintf("widened size to %d (refinement rate %.2f)", widened, rate),
			})
		}

		popular, err := t.PopularValues(ctx, cfg.Field(), cfg.Size())
		if err != nil {
			return nil, nil, err
		}
		if len(popular) > 0 {
			*cfg = cfg.WithInclude(popular)
			notes = append(notes, OptimizationNote{
				Field:  cfg.Field(),
				Change: fmt.Sprintf("pinned %d popular values", len(popular)),
			})
		}
	}
	return optimized, notes, nil
}
