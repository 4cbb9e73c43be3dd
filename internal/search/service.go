// Package search orchestrates the full query pipeline: language fan-out,
// facet planning, optimization, scoring, execution, and suggestion
// augmentation.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsearch "github.com/truongngoctrac/claims-search/internal/domain/search"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
	"github.com/truongngoctrac/claims-search/internal/language"
)

// eventsStream receives search analytics records.
const eventsStream = "search:events"

const (
	defaultSize = 10
	maxSize     = 100
)

// Defaults are deployment-level request defaults, sourced from the search
// and language config sections. A request field left unset falls back here.
type Defaults struct {
	Fields        []string
	PageSize      int
	MaxPageSize   int
	CrossLanguage bool
	NativeBoost   bool
}

func (d Defaults) normalized() Defaults {
	if d.PageSize <= 0 {
		d.PageSize = defaultSize
	}
	if d.MaxPageSize <= 0 {
		d.MaxPageSize = maxSize
	}
	return d
}

// Pipeline stage names used in response metadata.
const (
	stageLanguage    = "language"
	stageFacets      = "facets"
	stageOptimize    = "optimize"
	stageScoring     = "scoring"
	stageExecute     = "execute"
	stageSuggestions = "suggestions"
)

// Request is one orchestrated search.
type Request struct {
	Text string
	// Query is a raw DSL query clause; when set it bypasses language
	// expansion of Text.
	Query     query.Tree
	Fields    []string
	From      int
	Size      int
	Sort      []query.Tree
	Highlight []string
	// ModelID selects a scoring model explicitly; empty uses the active one.
	ModelID string

	SourceLanguage string
	// CrossLanguage and NativeBoost default from configuration when nil.
	CrossLanguage   *bool
	TargetLanguages []string
	NativeBoost     *bool

	Facets  []facet.Config
	Filters []facet.Filter

	Suggest     []domsuggest.Config
	SuggestSize int
	User        *domsuggest.UserContext
}

// LanguageMeta reports what the language stage detected and searched.
type LanguageMeta struct {
	Detected     domlang.Detection
	Searched     []string
	Translations map[string]string
}

// OptimizationMeta reports what the optimizer changed.
type OptimizationMeta struct {
	Applied            []string
	ImprovementPercent float64
}

// Response is the assembled search result. Optional sections are nil when
// not requested or degraded; Degraded lists the stages that failed softly.
type Response struct {
	Hits         domsearch.Hits
	Took         time.Duration
	TimedOut     bool
	Facets       []facet.Result
	Suggestions  []domsuggest.Candidate
	Language     *LanguageMeta
	Optimization *OptimizationMeta
	Degraded     []string
	Stages       map[string]time.Duration
}

// Service runs the search pipeline.
type Service struct {
	backend   Backend
	optimizer QueryOptimizer
	scorer    Scorer
	facets    FacetPlanner
	usage     FacetUsage
	suggester Suggester
	expander  Expander
	analytics Analytics
	defaults  Defaults
	logger    *zap.Logger
}

// New wires the orchestrator.
func New(
	backend Backend,
	opt QueryOptimizer,
	scorer Scorer,
	facets FacetPlanner,
	usage FacetUsage,
	suggester Suggester,
	expander Expander,
	analytics Analytics,
	defaults Defaults,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:   backend,
		optimizer: opt,
		scorer:    scorer,
		facets:    facets,
		usage:     usage,
		suggester: suggester,
		expander:  expander,
		analytics: analytics,
		defaults:  defaults.normalized(),
		logger:    logger,
	}
}

// pipeline tracks per-stage timing and soft failures for one request.
type pipeline struct {
	mu       sync.Mutex
	stages   map[string]time.Duration
	degraded []string
}

func (p *pipeline) timed(stage string, fn func()) {
	start := time.Now()
	fn()
	p.mu.Lock()
	p.stages[stage] = time.Since(start)
	p.mu.Unlock()
}

func (p *pipeline) degrade(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.degraded {
		if d == stage {
			return
		}
	}
	p.degraded = append(p.degraded, stage)
}

// Search runs the pipeline. Only primary hits retrieval is fatal: facets,
// suggestions, and language expansion degrade to absent sections.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Text == "" && req.Query == nil {
		return nil, fmt.Errorf("%w: search needs query text or a query clause", domain.ErrValidation)
	}
	size := req.Size
	if size <= 0 {
		size = s.defaults.PageSize
	}
	if size > s.defaults.MaxPageSize {
		size = s.defaults.MaxPageSize
	}
	if len(req.Fields) == 0 {
		req.Fields = s.defaults.Fields
	}

	p := &pipeline{stages: make(map[string]time.Duration)}
	resp := &Response{}

	var base query.Tree
	p.timed(stageLanguage, func() {
		base = s.languageStage(req, resp, p)
	})

	body := query.Tree{"query": base, "size": size}
	if req.From > 0 {
		body["from"] = req.From
	}
	if len(req.Sort) > 0 {
		sorts := make([]any, len(req.Sort))
		for i, sc := range req.Sort {
			sorts[i] = sc
		}
		body["sort"] = sorts
	}
	if len(req.Highlight) > 0 {
		fields := query.Tree{}
		for _, f := range req.Highlight {
			fields[f] = query.Tree{}
		}
		body["highlight"] = query.Tree{"fields": fields}
	}

	facetsPlanned := false
	if len(req.Facets) > 0 {
		p.timed(stageFacets, func() {
			facetsPlanned = s.facetStage(ctx, req, body, p)
		})
	}

	p.timed(stageOptimize, func() {
		res := s.optimizer.Optimize(body)
		body = res.Tree
		resp.Optimization = &OptimizationMeta{
			Applied:            res.Applied,
			ImprovementPercent: res.ImprovementPercent,
		}
	})

	var fatal error
	p.timed(stageScoring, func() {
		body, fatal = s.scoringStage(ctx, req, body, p)
	})
	if fatal != nil {
		return nil, fatal
	}

	var result domsearch.BackendResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p.timed(stageExecute, func() {
			result, err = s.backend.Execute(gctx, body)
		})
		if err != nil {
			return fmt.Errorf("primary search failed: %w", err)
		}
		return nil
	})
	if len(req.Suggest) > 0 {
		g.Go(func() error {
			p.timed(stageSuggestions, func() {
				got, err := s.suggester.GetSuggestions(gctx, req.Text, req.Suggest, req.User, req.SuggestSize)
				if err != nil {
					p.degrade(stageSuggestions)
					s.logger.Warn("suggestion stage degraded", zap.Error(err))
					return
				}
				resp.Suggestions = got
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if facetsPlanned {
		parsed, err := s.facets.ParseResults(result.Aggregations, req.Facets)
		if err != nil {
			p.degrade(stageFacets)
			s.logger.Warn("facet parsing degraded", zap.Error(err))
		} else {
			resp.Facets = parsed
		}
	}

	resp.Hits = result.Hits
	resp.Took = result.Took
	resp.TimedOut = result.TimedOut
	resp.Degraded = p.degraded
	resp.Stages = p.stages

	s.publishSearch(ctx, req, resp)
	return resp, nil
}

// languageStage resolves the base query clause: raw DSL passes through,
// otherwise the text expands into per-language sub-queries. A failing
// expansion degrades to a plain multi-field match.
func (s *Service) languageStage(req Request, resp *Response, p *pipeline) query.Tree {
	if req.Query != nil {
		return req.Query.Clone()
	}

	cross := s.defaults.CrossLanguage
	if req.CrossLanguage != nil {
		cross = *req.CrossLanguage
	}
	native := s.defaults.NativeBoost
	if req.NativeBoost != nil {
		native = *req.NativeBoost
	}

	res, err := s.expander.Expand(language.Request{
		Text:            req.Text,
		Fields:          req.Fields,
		SourceLanguage:  req.SourceLanguage,
		CrossLanguage:   cross,
		TargetLanguages: req.TargetLanguages,
		NativeBoost:     native,
	})
	if err != nil {
		p.degrade(stageLanguage)
		s.logger.Warn("language stage degraded", zap.Error(err))
		return fallbackQuery(req.Text, req.Fields)
	}

	resp.Language = &LanguageMeta{
		Detected:     res.Detected,
		Searched:     res.Searched,
		Translations: res.Translations,
	}
	return res.Query
}

func (s *Service) facetStage(ctx context.Context, req Request, body query.Tree, p *pipeline) bool {
	aggs, err := s.facets.BuildAggregations(req.Facets, req.Filters)
	if err != nil {
		p.degrade(stageFacets)
		s.logger.Warn("facet stage degraded", zap.Error(err))
		return false
	}
	body["aggs"] = aggs
	if pf := s.facets.PostFilter(req.Filters); pf != nil {
		body["post_filter"] = pf
	}
	s.usage.RecordQuery(ctx, req.Filters)
	return true
}

// scoringStage applies the model transform. An explicitly named model must
// resolve; with no model named, a missing active model simply skips scoring
// and any store trouble degrades instead of failing the request.
func (s *Service) scoringStage(ctx context.Context, req Request, body query.Tree, p *pipeline) (query.Tree, error) {
	scored, err := s.scorer.ApplyScoring(ctx, body, req.ModelID)
	if err == nil {
		return scored, nil
	}
	if req.ModelID != "" {
		return nil, fmt.Errorf("apply scoring model %q: %w", req.ModelID, err)
	}
	if !errors.Is(err, domain.ErrNoActiveModel) {
		p.degrade(stageScoring)
		s.logger.Warn("scoring stage degraded", zap.Error(err))
	}
	return body, nil
}

// FacetedSearch is the strict facet entry point: planner errors propagate
// instead of degrading.
func (s *Service) FacetedSearch(
	ctx context.Context, base query.Tree, configs []facet.Config, filters []facet.Filter, size int,
) (domsearch.Hits, []facet.Result, error) {
	if len(configs) == 0 {
		return domsearch.Hits{}, nil, fmt.Errorf("%w: faceted search needs at least one facet", domain.ErrValidation)
	}
	if base == nil {
		base = query.Tree{"match_all": query.Tree{}}
	}
	if size < 0 {
		size = 0
	}

	aggs, err := s.facets.BuildAggregations(configs, filters)
	if err != nil {
		return domsearch.Hits{}, nil, err
	}
	body := query.Tree{"query": base.Clone(), "size": size, "aggs": aggs}
	if pf := s.facets.PostFilter(filters); pf != nil {
		body["post_filter"] = pf
	}
	s.usage.RecordQuery(ctx, filters)

	result, err := s.backend.Execute(ctx, body)
	if err != nil {
		return domsearch.Hits{}, nil, fmt.Errorf("faceted search failed: %w", err)
	}
	parsed, err := s.facets.ParseResults(result.Aggregations, configs)
	if err != nil {
		return domsearch.Hits{}, nil, fmt.Errorf("%w: %v", domain.ErrData, err)
	}
	return result.Hits, parsed, nil
}

// BatchResult is the outcome of one sub-query in a batch.
type BatchResult struct {
	Hits domsearch.Hits
	Err  error
}

// BatchSearch optimizes and executes several raw queries in one backend
// round trip, preserving order. A failing sub-query fills its slot's Err;
// only a transport-level failure fails the whole batch.
func (s *Service) BatchSearch(ctx context.Context, queries []query.Tree) ([]BatchResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: batch search needs at least one query", domain.ErrValidation)
	}

	bodies := make([]query.Tree, len(queries))
	for i, q := range queries {
		if len(q) == 0 {
			return nil, fmt.Errorf("%w: batch query %d is empty", domain.ErrValidation, i)
		}
		bodies[i] = s.optimizer.Optimize(query.Tree{"query": q.Clone()}).Tree
	}

	results, errs, err := s.backend.ExecuteMulti(ctx, bodies)
	if err != nil {
		return nil, err
	}
	out := make([]BatchResult, len(results))
	for i := range results {
		out[i] = BatchResult{Hits: results[i].Hits, Err: errs[i]}
	}
	return out, nil
}

func (s *Service) publishSearch(ctx context.Context, req Request, resp *Response) {
	fields := map[string]string{
		"event":   "search_executed",
		"query":   req.Text,
		"total":   strconv.FormatInt(resp.Hits.Total, 10),
		"took_ms": strconv.FormatInt(resp.Took.Milliseconds(), 10),
	}
	if resp.Language != nil {
		fields["language"] = resp.Language.Detected.Language
	}
	if req.User != nil && req.User.UserID != "" {
		fields["user_id"] = req.User.UserID
	}
	if err := s.analytics.Publish(ctx, eventsStream, fields); err != nil {
		s.logger.Debug("analytics publish failed", zap.Error(err))
	}
}

// fallbackQuery is the degraded-language base: one best-fields match over
// the requested fields.
func fallbackQuery(text string, fields []string) query.Tree {
	mm := query.Tree{"query": text, "type": "best_fields"}
	if len(fields) > 0 {
		anyFields := make([]any, len(fields))
		for i, f := range fields {
			anyFields[i] = f
		}
		mm["fields"] = anyFields
	}
	return query.Tree{"multi_match": mm}
}
