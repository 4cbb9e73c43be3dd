// Package suggest aggregates query suggestions from the index backend and
// node-local popularity tables into one ranked, cached list.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/truongngoctrac/claims-search/internal/domain"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
)

// AnalyticsStream is the event stream suggestion events are published to.
const AnalyticsStream = "search:events"

const (
	defaultTTL  = 5 * time.Minute
	defaultSize = 10
)

// Options tunes the aggregator.
type Options struct {
	CacheTTL    time.Duration
	DefaultSize int
	// Synonyms maps a lowercased word to its semantic alternatives.
	Synonyms map[string][]string
}

// Service is the suggestion aggregator.
type Service struct {
	index     IndexSuggester
	tables    TableStore
	cache     CacheStore
	analytics Analytics
	logger    *zap.Logger

	synonyms    map[string][]string
	ttl         time.Duration
	defaultSize int
}

// New wires a suggestion aggregator.
func New(index IndexSuggester, tables TableStore, cache CacheStore, analytics Analytics, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultTTL
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = defaultSize
	}
	return &Service{
		index:       index,
		tables:      tables,
		cache:       cache,
		analytics:   analytics,
		logger:      logger,
		synonyms:    opts.Synonyms,
		ttl:         opts.CacheTTL,
		defaultSize: opts.DefaultSize,
	}
}

// GetSuggestions fans candidate generation out across every configured
// source, merges and ranks the results, and memoizes the response. A failing
// source is skipped with a warning; only zero usable sources is an error.
// Every call, cached or not, bumps the query-frequency counter and emits an
// analytics record.
func (s *Service) GetSuggestions(
	ctx context.Context, text string, configs []domsuggest.Config, user *domsuggest.UserContext, size int,
) ([]domsuggest.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: suggestion text is empty", domain.ErrValidation)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no suggestion sources configured", domain.ErrValidation)
	}
	if size <= 0 {
		size = s.defaultSize
	}

	s.recordRequest(ctx, text, user)

	key := s.cacheKey(text, configs, user, size)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var out []domsuggest.Candidate
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
		_ = s.cache.Evict(ctx, key)
	}

	candidates, err := s.collect(ctx, text, configs, user)
	if err != nil {
		return nil, err
	}
	ranked := rank(candidates, text, size)

	if payload, err := json.Marshal(ranked); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
			s.logger.Warn("suggestion cache write failed", zap.Error(err))
		}
	}
	return ranked, nil
}

// collect runs every enabled source concurrently. Source errors degrade to
// an empty contribution unless every source failed.
func (s *Service) collect(
	ctx context.Context, text string, configs []domsuggest.Config, user *domsuggest.UserContext,
) ([]domsuggest.Candidate, error) {
	enabled := make(map[domsuggest.SourceType]bool, len(configs))
	var indexConfigs []domsuggest.Config
	for _, cfg := range configs {
		enabled[cfg.Source] = true
		switch cfg.Source {
		case domsuggest.SourceCompletion, domsuggest.SourceTerm, domsuggest.SourcePhrase:
			indexConfigs = append(indexConfigs, cfg)
		}
	}

	var (
		mu         sync.Mutex
		candidates []domsuggest.Candidate
		sources    int
		failures   int
		lastErr    error
	)
	add := func(batch []domsuggest.Candidate, err error, source string) {
		mu.Lock()
		defer mu.Unlock()
		sources++
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn("suggestion source failed", zap.String("source", source), zap.Error(err))
			return
		}
		candidates = append(candidates, batch...)
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(indexConfigs) > 0 {
		g.Go(func() error {
			batch, err := s.indexCandidates(gctx, text, indexConfigs)
			add(batch, err, "index")
			return nil
		})
	}
	if enabled[domsuggest.SourcePopular] {
		g.Go(func() error {
			batch, err := s.popularCandidates(gctx, text)
			add(batch, err, "popular")
			return nil
		})
	}
	if enabled[domsuggest.SourceTrending] {
		g.Go(func() error {
			batch, err := s.trendingCandidates(gctx, text)
			add(batch, err, "trending")
			return nil
		})
	}
	if enabled[domsuggest.SourceCorrection] {
		g.Go(func() error {
			batch, err := s.correctionCandidates(gctx, text)
			add(batch, err, "correction")
			return nil
		})
	}
	if enabled[domsuggest.SourceSemantic] {
		g.Go(func() error {
			add(s.synonymCandidates(text), nil, "semantic")
			return nil
		})
	}
	if enabled[domsuggest.SourcePersonalized] && user != nil && user.UserID != "" {
		g.Go(func() error {
			batch, err := s.personalizedCandidates(gctx, text, user)
			add(batch, err, "personalized")
			return nil
		})
	}
	_ = g.Wait()

	if sources > 0 && failures == sources {
		return nil, fmt.Errorf("all suggestion sources failed: %w", lastErr)
	}
	return candidates, nil
}

// TrackSelection records that the user picked a suggestion for a query.
func (s *Service) TrackSelection(ctx context.Context, queryText, chosen string) error {
	chosen = strings.TrimSpace(chosen)
	if chosen == "" {
		return fmt.Errorf("%w: chosen suggestion is empty", domain.ErrValidation)
	}
	if _, err := s.tables.HIncrBy(ctx, keyPopular, strings.ToLower(chosen), 1); err != nil {
		return fmt.Errorf("bump suggestion popularity: %w", err)
	}

	s.publish(ctx, map[string]string{
		"event":      "suggestion_selected",
		"query":      queryText,
		"suggestion": chosen,
	})
	return nil
}

// QueryFrequency reports how often a query text has been asked for.
func (s *Service) QueryFrequency(ctx context.Context, text string) int64 {
	table, err := s.tables.HGetAll(ctx, keyFrequency)
	if err != nil {
		return 0
	}
	n, _ := strconv.ParseInt(table[strings.ToLower(strings.TrimSpace(text))], 10, 64)
	return n
}

func (s *Service) recordRequest(ctx context.Context, text string, user *domsuggest.UserContext) {
	if _, err := s.tables.HIncrBy(ctx, keyFrequency, strings.ToLower(text), 1); err != nil {
		s.logger.Warn("query frequency counter failed", zap.Error(err))
	}

	fields := map[string]string{
		"event": "suggestions_requested",
		"query": text,
	}
	if user != nil && user.UserID != "" {
		fields["user_id"] = user.UserID
	}
	s.publish(ctx, fields)
}

// publish is fire and forget; the stream is length-bounded at the sink so
// the oldest records drop once it fills.
func (s *Service) publish(ctx context.Context, fields map[string]string) {
	fields["event_id"] = uuid.NewString()
	fields["ts"] = time.Now().UTC().Format(time.RFC3339)
	if err := s.analytics.Publish(ctx, AnalyticsStream, fields); err != nil {
		s.logger.Debug("analytics publish failed", zap.Error(err))
	}
}

// cacheKey folds the request text, the source configuration and the user
// identity into one stable key.
func (s *Service) cacheKey(text string, configs []domsuggest.Config, user *domsuggest.UserContext, size int) string {
	parts := make([]string, 0, len(configs))
	for _, cfg := range configs {
		parts = append(parts, fmt.Sprintf("%s/%s/%d", cfg.Source, cfg.Field, cfg.Size))
	}
	sort.Strings(parts)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", strings.ToLower(text), strings.Join(parts, ","), size)
	if user != nil {
		fmt.Fprintf(h, "|%s", user.UserID)
	}
	return fmt.Sprintf("search:suggest:cache:%x", h.Sum64())
}
