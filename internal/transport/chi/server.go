// Package chi exposes the search platform over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	chimux "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
	"github.com/truongngoctrac/claims-search/internal/facets"
	healthsvc "github.com/truongngoctrac/claims-search/internal/health"
	"github.com/truongngoctrac/claims-search/internal/language"
	"github.com/truongngoctrac/claims-search/internal/metrics"
	"github.com/truongngoctrac/claims-search/internal/optimizer"
	"github.com/truongngoctrac/claims-search/internal/relevance"
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
	suggestsvc "github.com/truongngoctrac/claims-search/internal/suggest"
)

const defaultPopularLimit = 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// TestCaseStore persists judged query test cases and their judgments.
type TestCaseStore interface {
	Save(ctx context.Context, tc *scoring.TestCase) error
	Get(ctx context.Context, queryID string) (scoring.TestCase, error)
	List(ctx context.Context) ([]string, error)
	AppendJudgment(ctx context.Context, j scoring.Judgment) error
	Judgments(ctx context.Context, queryID string) ([]scoring.Judgment, error)
}

// Server is the HTTP API server.
type Server struct {
	search        *searchsvc.Service
	relevance     *relevance.Service
	testCases     TestCaseStore
	suggest       *suggestsvc.Service
	languages     *language.Coordinator
	optimizer     *optimizer.Optimizer
	facetUsage    *facets.Tracker
	health        *healthsvc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchsvc.Service,
	rel *relevance.Service,
	testCases TestCaseStore,
	suggest *suggestsvc.Service,
	languages *language.Coordinator,
	opt *optimizer.Optimizer,
	facetUsage *facets.Tracker,
	health *healthsvc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		relevance:  rel,
		testCases:  testCases,
		suggest:    suggest,
		languages:  languages,
		optimizer:  opt,
		facetUsage: facetUsage,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrModelNotFound, http.StatusNotFound, codeModelNotFound),
		sentinelHandler(domain.ErrTestCaseNotFound, http.StatusNotFound, codeTestCaseNotFound),
		sentinelHandler(domain.ErrNoActiveModel, http.StatusNotFound, codeNoActiveModel),
		sentinelHandler(domain.ErrModelExists, http.StatusConflict, codeModelExists),
		sentinelHandler(domain.ErrActiveModelDelete, http.StatusConflict, codeActiveModelDelete),
		sentinelHandler(domain.ErrUnknownFacetType, http.StatusBadRequest, codeUnknownFacetType),
		sentinelHandler(domain.ErrUnknownLanguage, http.StatusBadRequest, codeUnknownLanguage),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, codeConfigError),
		sentinelHandler(domain.ErrData, http.StatusUnprocessableEntity, codeDataError),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chimux.Router) {
	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chimux.Router) {
		r.Post("/search", s.Search)
		r.Post("/search/faceted", s.FacetedSearch)
		r.Post("/search/batch", s.BatchSearch)

		r.Post("/query/optimize", s.OptimizeQuery)
		r.Post("/query/score", s.ApplyScoring)

		r.Post("/suggestions", s.GetSuggestions)
		r.Post("/suggestions/selection", s.TrackSelection)

		r.Post("/language/detect", s.DetectLanguage)
		r.Post("/language/translate", s.Translate)

		r.Route("/models", func(r chimux.Router) {
			r.Post("/", s.CreateModel)
			r.Get("/", s.ListModels)
			r.Get("/active", s.GetActiveModel)
			r.Get("/{modelID}", s.GetModel)
			r.Put("/{modelID}", s.UpdateModel)
			r.Delete("/{modelID}", s.DeleteModel)
			r.Post("/{modelID}/activate", s.ActivateModel)
			r.Post("/{modelID}/evaluate", s.EvaluateModel)
		})

		r.Route("/testcases", func(r chimux.Router) {
			r.Post("/", s.CreateTestCase)
			r.Get("/", s.ListTestCases)
			r.Get("/{queryID}", s.GetTestCase)
			r.Post("/{queryID}/judgments", s.AddJudgment)
			r.Get("/{queryID}/judgments", s.ListJudgments)
		})

		r.Route("/facets", func(r chimux.Router) {
			r.Get("/{field}/stats", s.FacetStats)
			r.Post("/optimize", s.OptimizeFacets)
		})
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	domReq := searchsvc.Request{
		Text:      req.Text,
		Query:     req.Query,
		Fields:    req.Fields,
		From:      req.From,
		Size:      req.Size,
		Sort:      req.Sort,
		Highlight: req.Highlight,
		ModelID:   req.ModelID,
	}
	if req.Language != nil {
		domReq.SourceLanguage = req.Language.Source
		domReq.CrossLanguage = req.Language.CrossLanguage
		domReq.TargetLanguages = req.Language.Targets
		domReq.NativeBoost = req.Language.NativeBoost
	}
	if len(req.Facets) > 0 {
		configs, err := facetConfigsFromDTO(req.Facets)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		domReq.Facets = configs
		domReq.Filters = facetFiltersFromDTO(req.Filters)
	}
	if req.Suggest != nil {
		domReq.Suggest = suggestConfigsFromDTO(req.Suggest.Sources)
		domReq.SuggestSize = req.Suggest.Size
	}
	domReq.User = userContextFromDTO(req.User)

	resp, err := s.search.Search(r.Context(), domReq)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.ObserveSearch(resp.Stages, resp.Degraded)

	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp))
}

// FacetedSearch handles POST /api/v1/search/faceted. Unlike Search, facet
// failures here are hard errors.
func (s *Server) FacetedSearch(w http.ResponseWriter, r *http.Request) {
	var req facetedSearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	configs, err := facetConfigsFromDTO(req.Facets)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits, results, err := s.search.FacetedSearch(
		r.Context(), req.Query, configs, facetFiltersFromDTO(req.Filters), req.Size)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := facetedSearchResponseDTO{Hits: hitsFromDomain(hits)}
	for _, f := range results {
		resp.Facets = append(resp.Facets, facetResultFromDomain(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

// BatchSearch handles POST /api/v1/search/batch. Every query runs in a
// single backend round trip; a failure in one slot does not fail the rest.
func (s *Server) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchSearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := s.search.BatchSearch(r.Context(), req.Queries)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := batchSearchResponseDTO{Results: make([]batchSearchItemDTO, len(results))}
	for i, res := range results {
		if res.Err != nil {
			resp.Results[i] = batchSearchItemDTO{Error: safeDomainMessage(res.Err)}
			continue
		}
		hits := hitsFromDomain(res.Hits)
		resp.Results[i] = batchSearchItemDTO{Hits: &hits}
	}
	writeJSON(w, http.StatusOK, resp)
}

// OptimizeQuery handles POST /api/v1/query/optimize.
func (s *Server) OptimizeQuery(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Query) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	res := s.optimizer.Optimize(req.Query)
	writeJSON(w, http.StatusOK, optimizeResponseDTO{
		Optimized:          res.Tree,
		Applied:            res.Applied,
		ImprovementPercent: res.ImprovementPercent,
	})
}

// ApplyScoring handles POST /api/v1/query/score.
func (s *Server) ApplyScoring(w http.ResponseWriter, r *http.Request) {
	var req applyScoringRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Query) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	scored, err := s.relevance.ApplyScoring(r.Context(), req.Query, req.ModelID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applyScoringResponseDTO{Scored: scored})
}

// GetSuggestions handles POST /api/v1/suggestions.
func (s *Server) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	candidates, err := s.suggest.GetSuggestions(
		r.Context(), req.Text, suggestConfigsFromDTO(req.Sources), userContextFromDTO(req.User), req.Size)
	if err != nil {
		metrics.SuggestionRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SuggestionRequestsTotal.WithLabelValues("ok").Inc()

	resp := suggestionsResponseDTO{Suggestions: make([]suggestionDTO, len(candidates))}
	for i, c := range candidates {
		resp.Suggestions[i] = suggestionFromDomain(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// TrackSelection handles POST /api/v1/suggestions/selection.
func (s *Server) TrackSelection(w http.ResponseWriter, r *http.Request) {
	var req trackSelectionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.suggest.TrackSelection(r.Context(), req.Query, req.Suggestion); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetectLanguage handles POST /api/v1/language/detect.
func (s *Server) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	var req detectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	detection, err := s.languages.DetectLanguage(req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, languageMetaFromDetection(detection))
}

// Translate handles POST /api/v1/language/translate.
func (s *Server) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	translated, err := s.languages.Translate(req.Text, req.Source, req.Target)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponseDTO{Translated: translated})
}

// CreateModel handles POST /api/v1/models.
func (s *Server) CreateModel(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeModelRequest(w, r)
	if !ok {
		return
	}
	functions, err := functionsFromDTO(req.Functions)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	m, err := s.relevance.CreateModel(r.Context(), req.ID, req.Name, weightsFromDTO(req.Weights), functions)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, modelToDTO(&m))
}

// ListModels handles GET /api/v1/models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.relevance.ListModels(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := modelListDTO{Models: make([]modelResponseDTO, len(models))}
	for i := range models {
		resp.Models[i] = modelToDTO(&models[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetActiveModel handles GET /api/v1/models/active.
func (s *Server) GetActiveModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.relevance.ActiveModel(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToDTO(&m))
}

// GetModel handles GET /api/v1/models/{modelID}.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.relevance.GetModel(r.Context(), chimux.URLParam(r, "modelID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToDTO(&m))
}

// UpdateModel handles PUT /api/v1/models/{modelID}.
func (s *Server) UpdateModel(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeModelRequest(w, r)
	if !ok {
		return
	}
	functions, err := functionsFromDTO(req.Functions)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	m, err := s.relevance.UpdateModel(
		r.Context(), chimux.URLParam(r, "modelID"), req.Name, weightsFromDTO(req.Weights), functions)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToDTO(&m))
}

// DeleteModel handles DELETE /api/v1/models/{modelID}.
func (s *Server) DeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.relevance.DeleteModel(r.Context(), chimux.URLParam(r, "modelID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateModel handles POST /api/v1/models/{modelID}/activate.
func (s *Server) ActivateModel(w http.ResponseWriter, r *http.Request) {
	id := chimux.URLParam(r, "modelID")
	if err := s.relevance.SetActiveModel(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	m, err := s.relevance.GetModel(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToDTO(&m))
}

// EvaluateModel handles POST /api/v1/models/{modelID}/evaluate. The body is
// optional; without it every stored test case is used.
func (s *Server) EvaluateModel(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	perf, err := s.relevance.EvaluateModel(r.Context(), chimux.URLParam(r, "modelID"), req.TestCaseIDs)
	if err != nil {
		metrics.ModelEvaluationsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.ModelEvaluationsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, performanceToDTO(perf))
}

// CreateTestCase handles POST /api/v1/testcases.
func (s *Server) CreateTestCase(w http.ResponseWriter, r *http.Request) {
	var req testCaseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	tc, err := scoring.NewTestCase(req.QueryID, req.QueryText, expectedFromDTO(req.Expected))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.testCases.Save(r.Context(), &tc); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, testCaseToDTO(&tc))
}

// ListTestCases handles GET /api/v1/testcases.
func (s *Server) ListTestCases(w http.ResponseWriter, r *http.Request) {
	ids, err := s.testCases.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, testCaseListDTO{QueryIDs: ids})
}

// GetTestCase handles GET /api/v1/testcases/{queryID}.
func (s *Server) GetTestCase(w http.ResponseWriter, r *http.Request) {
	tc, err := s.testCases.Get(r.Context(), chimux.URLParam(r, "queryID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, testCaseToDTO(&tc))
}

// AddJudgment handles POST /api/v1/testcases/{queryID}/judgments.
func (s *Server) AddJudgment(w http.ResponseWriter, r *http.Request) {
	var req judgmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	j, err := scoring.NewJudgment(chimux.URLParam(r, "queryID"), req.DocumentID, req.Grade, req.AnnotatorID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.testCases.AppendJudgment(r.Context(), j); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, judgmentToDTO(j))
}

// ListJudgments handles GET /api/v1/testcases/{queryID}/judgments.
func (s *Server) ListJudgments(w http.ResponseWriter, r *http.Request) {
	judgments, err := s.testCases.Judgments(r.Context(), chimux.URLParam(r, "queryID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := judgmentListDTO{Judgments: make([]judgmentDTO, len(judgments))}
	for i, j := range judgments {
		resp.Judgments[i] = judgmentToDTO(j)
	}
	writeJSON(w, http.StatusOK, resp)
}

// FacetStats handles GET /api/v1/facets/{field}/stats.
func (s *Server) FacetStats(w http.ResponseWriter, r *http.Request) {
	field := chimux.URLParam(r, "field")

	limit := defaultPopularLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rate, err := s.facetUsage.RefinementRate(r.Context(), field)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	popular, err := s.facetUsage.PopularValues(r.Context(), field, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, facetStatsDTO{
		Field:          field,
		RefinementRate: rate,
		PopularValues:  popular,
	})
}

// OptimizeFacets handles POST /api/v1/facets/optimize.
func (s *Server) OptimizeFacets(w http.ResponseWriter, r *http.Request) {
	var req facetOptimizeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Facets) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "at least one facet is required")
		return
	}

	configs, err := facetConfigsFromDTO(req.Facets)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	tuned, notes, err := s.facetUsage.OptimizeConfiguration(r.Context(), configs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := facetOptimizeResponseDTO{
		Facets: make([]facetConfigDTO, len(tuned)),
		Notes:  optimizationNotesToStrings(notes),
	}
	for i := range tuned {
		resp.Facets[i] = facetConfigToDTO(&tuned[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHealth handles GET /health. An unhealthy index backend returns 503; a
// degraded store does not.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthsvc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	writeJSON(w, status, healthDTO{Status: string(report.Status), Checks: checks})
}

func (s *Server) decodeModelRequest(w http.ResponseWriter, r *http.Request) (modelRequestDTO, bool) {
	var req modelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return modelRequestDTO{}, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "model name is required")
		return modelRequestDTO{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals. Validation errors keep their full text so callers can
// see what to fix.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrModelNotFound,
		domain.ErrTestCaseNotFound,
		domain.ErrNoActiveModel,
		domain.ErrModelExists,
		domain.ErrActiveModelDelete,
		domain.ErrUnknownFacetType,
		domain.ErrUnknownLanguage,
		domain.ErrConfiguration,
		domain.ErrData,
		domain.ErrUpstream,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
