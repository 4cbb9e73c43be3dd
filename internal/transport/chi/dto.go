package chi

import (
	"fmt"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsearch "github.com/truongngoctrac/claims-search/internal/domain/search"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
	"github.com/truongngoctrac/claims-search/internal/facets"
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeUpstreamError     = "upstream_error"
	codeDataError         = "data_error"
	codeConfigError       = "configuration_error"
	codeModelNotFound     = "model_not_found"
	codeModelExists       = "model_already_exists"
	codeActiveModelDelete = "active_model_delete"
	codeNoActiveModel     = "no_active_model"
	codeTestCaseNotFound  = "test_case_not_found"
	codeUnknownFacetType  = "unknown_facet_type"
	codeUnknownLanguage   = "unknown_language"
	codeInternalError     = "internal_error"
)

// --- search ---

// languageOptionsDTO uses pointer booleans so an absent field falls back to
// the configured defaults instead of false.
type languageOptionsDTO struct {
	Source        string   `json:"source,omitempty"`
	CrossLanguage *bool    `json:"cross_language,omitempty"`
	Targets       []string `json:"targets,omitempty"`
	NativeBoost   *bool    `json:"native_boost,omitempty"`
}

type suggestOptionsDTO struct {
	Sources []suggestConfigDTO `json:"sources"`
	Size    int                `json:"size,omitempty"`
}

type searchRequestDTO struct {
	Text      string              `json:"text"`
	Query     query.Tree          `json:"query,omitempty"`
	Fields    []string            `json:"fields,omitempty"`
	From      int                 `json:"from,omitempty"`
	Size      int                 `json:"size,omitempty"`
	Sort      []query.Tree        `json:"sort,omitempty"`
	Highlight []string            `json:"highlight,omitempty"`
	ModelID   string              `json:"model_id,omitempty"`
	Language  *languageOptionsDTO `json:"language,omitempty"`
	Facets    []facetConfigDTO    `json:"facets,omitempty"`
	Filters   []facetFilterDTO    `json:"filters,omitempty"`
	Suggest   *suggestOptionsDTO  `json:"suggest,omitempty"`
	User      *userContextDTO     `json:"user,omitempty"`
}

type userContextDTO struct {
	UserID  string   `json:"user_id"`
	History []string `json:"history,omitempty"`
}

type hitDTO struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Source     map[string]any      `json:"source,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

type hitsDTO struct {
	Total    int64    `json:"total"`
	MaxScore float64  `json:"max_score"`
	Items    []hitDTO `json:"items"`
}

type languageMetaDTO struct {
	Language     string             `json:"language"`
	Confidence   float64            `json:"confidence"`
	Alternatives []languageScoreDTO `json:"alternatives,omitempty"`
	Searched     []string           `json:"searched,omitempty"`
	Translations map[string]string  `json:"translations,omitempty"`
}

type languageScoreDTO struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

type optimizationMetaDTO struct {
	Applied            []string `json:"applied"`
	ImprovementPercent float64  `json:"improvement_percent"`
}

type searchResponseDTO struct {
	Hits         hitsDTO              `json:"hits"`
	TookMs       int64                `json:"took_ms"`
	TimedOut     bool                 `json:"timed_out,omitempty"`
	Facets       []facetResultDTO     `json:"facets,omitempty"`
	Suggestions  []suggestionDTO      `json:"suggestions,omitempty"`
	Language     *languageMetaDTO     `json:"language,omitempty"`
	Optimization *optimizationMetaDTO `json:"optimization,omitempty"`
	Degraded     []string             `json:"degraded,omitempty"`
	StagesMs     map[string]int64     `json:"stages_ms,omitempty"`
}

func searchResponseFromDomain(resp *searchsvc.Response) searchResponseDTO {
	out := searchResponseDTO{
		Hits:     hitsFromDomain(resp.Hits),
		TookMs:   resp.Took.Milliseconds(),
		TimedOut: resp.TimedOut,
		Degraded: resp.Degraded,
	}
	for _, f := range resp.Facets {
		out.Facets = append(out.Facets, facetResultFromDomain(f))
	}
	for _, s := range resp.Suggestions {
		out.Suggestions = append(out.Suggestions, suggestionFromDomain(s))
	}
	if resp.Language != nil {
		meta := languageMetaFromDetection(resp.Language.Detected)
		meta.Searched = resp.Language.Searched
		meta.Translations = resp.Language.Translations
		out.Language = &meta
	}
	if resp.Optimization != nil {
		out.Optimization = &optimizationMetaDTO{
			Applied:            resp.Optimization.Applied,
			ImprovementPercent: resp.Optimization.ImprovementPercent,
		}
	}
	if len(resp.Stages) > 0 {
		out.StagesMs = make(map[string]int64, len(resp.Stages))
		for stage, d := range resp.Stages {
			out.StagesMs[stage] = d.Milliseconds()
		}
	}
	return out
}

func hitsFromDomain(h domsearch.Hits) hitsDTO {
	items := make([]hitDTO, len(h.Items))
	for i, hit := range h.Items {
		items[i] = hitDTO{
			ID:         hit.ID,
			Score:      hit.Score,
			Source:     hit.Source,
			Highlights: hit.Highlights,
		}
	}
	return hitsDTO{Total: h.Total, MaxScore: h.MaxScore, Items: items}
}

func languageMetaFromDetection(d domlang.Detection) languageMetaDTO {
	meta := languageMetaDTO{Language: d.Language, Confidence: d.Confidence}
	for _, alt := range d.Alternatives {
		meta.Alternatives = append(meta.Alternatives, languageScoreDTO{
			Code:       alt.Code,
			Confidence: alt.Confidence,
		})
	}
	return meta
}

// --- facets ---

type facetBoundDTO struct {
	Key  string   `json:"key,omitempty"`
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

type facetConfigDTO struct {
	Field       string          `json:"field"`
	Type        string          `json:"type"`
	Size        int             `json:"size,omitempty"`
	Order       string          `json:"order,omitempty"`
	MinDocCount int             `json:"min_doc_count,omitempty"`
	Include     []string        `json:"include,omitempty"`
	Exclude     []string        `json:"exclude,omitempty"`
	Ranges      []facetBoundDTO `json:"ranges,omitempty"`
	Interval    string          `json:"interval,omitempty"`
	Format      string          `json:"format,omitempty"`
	TimeZone    string          `json:"time_zone,omitempty"`
	Path        string          `json:"path,omitempty"`
	SubField    string          `json:"sub_field,omitempty"`
	Lat         float64         `json:"lat,omitempty"`
	Lon         float64         `json:"lon,omitempty"`
	Unit        string          `json:"unit,omitempty"`
}

type facetFilterDTO struct {
	Field      string         `json:"field"`
	Values     []string       `json:"values,omitempty"`
	Range      *facetBoundDTO `json:"range,omitempty"`
	Combinator string         `json:"combinator,omitempty"`
}

type facetBucketDTO struct {
	Key      string   `json:"key"`
	DocCount int64    `json:"doc_count"`
	From     *float64 `json:"from,omitempty"`
	To       *float64 `json:"to,omitempty"`
}

type facetResultDTO struct {
	Field                 string           `json:"field"`
	Type                  string           `json:"type"`
	Buckets               []facetBucketDTO `json:"buckets"`
	CardinalityErrorBound int64            `json:"cardinality_error_bound,omitempty"`
}

func facetConfigFromDTO(dto facetConfigDTO) (facet.Config, error) {
	switch facet.Type(dto.Type) {
	case facet.Terms:
		var params *facet.TermsParams
		if dto.MinDocCount > 0 || len(dto.Include) > 0 || len(dto.Exclude) > 0 {
			params = &facet.TermsParams{
				MinDocCount: dto.MinDocCount,
				Include:     dto.Include,
				Exclude:     dto.Exclude,
			}
		}
		return facet.NewTerms(dto.Field, dto.Size, facet.Order(dto.Order), params)
	case facet.Range:
		return facet.NewRange(dto.Field, boundsFromDTO(dto.Ranges))
	case facet.DateHistogram:
		return facet.NewDateHistogram(dto.Field, facet.DateHistogramParams{
			Interval: dto.Interval,
			Format:   dto.Format,
			TimeZone: dto.TimeZone,
		})
	case facet.Nested:
		return facet.NewNested(dto.Field, dto.Size, facet.NestedParams{
			Path:     dto.Path,
			SubField: dto.SubField,
		})
	case facet.GeoDistance:
		return facet.NewGeoDistance(dto.Field, facet.GeoParams{
			Lat:    dto.Lat,
			Lon:    dto.Lon,
			Unit:   dto.Unit,
			Ranges: boundsFromDTO(dto.Ranges),
		})
	default:
		return facet.Config{}, fmt.Errorf("%w: %q", domain.ErrUnknownFacetType, dto.Type)
	}
}

func facetConfigsFromDTO(dtos []facetConfigDTO) ([]facet.Config, error) {
	configs := make([]facet.Config, 0, len(dtos))
	for _, dto := range dtos {
		cfg, err := facetConfigFromDTO(dto)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func facetFiltersFromDTO(dtos []facetFilterDTO) []facet.Filter {
	filters := make([]facet.Filter, 0, len(dtos))
	for _, dto := range dtos {
		f := facet.Filter{
			Field:      dto.Field,
			Values:     dto.Values,
			Combinator: facet.Combinator(dto.Combinator),
		}
		if dto.Range != nil {
			f.Range = &facet.Bound{Key: dto.Range.Key, From: dto.Range.From, To: dto.Range.To}
		}
		filters = append(filters, f)
	}
	return filters
}

func boundsFromDTO(dtos []facetBoundDTO) []facet.Bound {
	bounds := make([]facet.Bound, len(dtos))
	for i, b := range dtos {
		bounds[i] = facet.Bound{Key: b.Key, From: b.From, To: b.To}
	}
	return bounds
}

func facetResultFromDomain(r facet.Result) facetResultDTO {
	buckets := make([]facetBucketDTO, len(r.Buckets))
	for i, b := range r.Buckets {
		buckets[i] = facetBucketDTO{Key: b.Key, DocCount: b.DocCount, From: b.From, To: b.To}
	}
	return facetResultDTO{
		Field:                 r.Field,
		Type:                  string(r.FacetType),
		Buckets:               buckets,
		CardinalityErrorBound: r.CardinalityErrorBound,
	}
}

type facetStatsDTO struct {
	Field          string   `json:"field"`
	RefinementRate float64  `json:"refinement_rate"`
	PopularValues  []string `json:"popular_values,omitempty"`
}

type facetOptimizeRequestDTO struct {
	Facets []facetConfigDTO `json:"facets"`
}

type facetOptimizeResponseDTO struct {
	Facets []facetConfigDTO `json:"facets"`
	Notes  []string         `json:"notes,omitempty"`
}

func facetConfigToDTO(cfg *facet.Config) facetConfigDTO {
	dto := facetConfigDTO{
		Field: cfg.Field(),
		Type:  string(cfg.FacetType()),
		Size:  cfg.Size(),
		Order: string(cfg.Ordering()),
	}
	if p := cfg.TermsParams(); p != nil {
		dto.MinDocCount = p.MinDocCount
		dto.Include = p.Include
		dto.Exclude = p.Exclude
	}
	for _, b := range cfg.Ranges() {
		dto.Ranges = append(dto.Ranges, facetBoundDTO{Key: b.Key, From: b.From, To: b.To})
	}
	if p := cfg.DateHistogramParams(); p != nil {
		dto.Interval = p.Interval
		dto.Format = p.Format
		dto.TimeZone = p.TimeZone
	}
	if p := cfg.NestedParams(); p != nil {
		dto.Path = p.Path
		dto.SubField = p.SubField
	}
	if p := cfg.GeoParams(); p != nil {
		dto.Lat = p.Lat
		dto.Lon = p.Lon
		dto.Unit = p.Unit
		for _, b := range p.Ranges {
			dto.Ranges = append(dto.Ranges, facetBoundDTO{Key: b.Key, From: b.From, To: b.To})
		}
	}
	return dto
}

func optimizationNotesToStrings(notes []facets.OptimizationNote) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = fmt.Sprintf("%s: %s", n.Field, n.Change)
	}
	return out
}

type facetedSearchRequestDTO struct {
	Query   query.Tree       `json:"query,omitempty"`
	Facets  []facetConfigDTO `json:"facets"`
	Filters []facetFilterDTO `json:"filters,omitempty"`
	Size    int              `json:"size,omitempty"`
}

type facetedSearchResponseDTO struct {
	Hits   hitsDTO          `json:"hits"`
	Facets []facetResultDTO `json:"facets"`
}

type batchSearchRequestDTO struct {
	Queries []query.Tree `json:"queries"`
}

type batchSearchItemDTO struct {
	Hits  *hitsDTO `json:"hits,omitempty"`
	Error string   `json:"error,omitempty"`
}

type batchSearchResponseDTO struct {
	Results []batchSearchItemDTO `json:"results"`
}

// --- optimizer / scoring ---

type optimizeRequestDTO struct {
	Query query.Tree `json:"query"`
}

type optimizeResponseDTO struct {
	Optimized          query.Tree `json:"optimized"`
	Applied            []string   `json:"applied"`
	ImprovementPercent float64    `json:"improvement_percent"`
}

type applyScoringRequestDTO struct {
	Query   query.Tree `json:"query"`
	ModelID string     `json:"model_id,omitempty"`
}

type applyScoringResponseDTO struct {
	Scored query.Tree `json:"scored"`
}

// --- suggestions ---

type suggestConfigDTO struct {
	Source string `json:"source"`
	Field  string `json:"field,omitempty"`
	Size   int    `json:"size,omitempty"`
}

type suggestRequestDTO struct {
	Text    string             `json:"text"`
	Sources []suggestConfigDTO `json:"sources"`
	Size    int                `json:"size,omitempty"`
	User    *userContextDTO    `json:"user,omitempty"`
}

type suggestionDTO struct {
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Frequency int64   `json:"frequency,omitempty"`
}

type suggestionsResponseDTO struct {
	Suggestions []suggestionDTO `json:"suggestions"`
}

type trackSelectionRequestDTO struct {
	Query      string `json:"query"`
	Suggestion string `json:"suggestion"`
}

func suggestConfigsFromDTO(dtos []suggestConfigDTO) []domsuggest.Config {
	configs := make([]domsuggest.Config, len(dtos))
	for i, dto := range dtos {
		configs[i] = domsuggest.Config{
			Source: domsuggest.SourceType(dto.Source),
			Field:  dto.Field,
			Size:   dto.Size,
		}
	}
	return configs
}

func userContextFromDTO(dto *userContextDTO) *domsuggest.UserContext {
	if dto == nil || dto.UserID == "" {
		return nil
	}
	return &domsuggest.UserContext{UserID: dto.UserID, History: dto.History}
}

func suggestionFromDomain(c domsuggest.Candidate) suggestionDTO {
	return suggestionDTO{
		Text:      c.Text,
		Score:     c.Score,
		Source:    string(c.Source),
		Frequency: c.Frequency,
	}
}

// --- language ---

type detectRequestDTO struct {
	Text string `json:"text"`
}

type translateRequestDTO struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponseDTO struct {
	Translated string `json:"translated"`
}

// --- models / test cases ---

type fieldWeightDTO struct {
	Field  string  `json:"field"`
	Weight float64 `json:"weight"`
	Boost  float64 `json:"boost,omitempty"`
}

type scoringFunctionDTO struct {
	Type     string         `json:"type"`
	Field    string         `json:"field,omitempty"`
	Factor   float64        `json:"factor,omitempty"`
	Modifier string         `json:"modifier,omitempty"`
	Missing  float64        `json:"missing,omitempty"`
	Source   string         `json:"source,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Origin   any            `json:"origin,omitempty"`
	Scale    string         `json:"scale,omitempty"`
	Offset   string         `json:"offset,omitempty"`
	Rate     float64        `json:"rate,omitempty"`
	Seed     int64          `json:"seed,omitempty"`
}

type modelRequestDTO struct {
	ID        string               `json:"id,omitempty"`
	Name      string               `json:"name"`
	Weights   []fieldWeightDTO     `json:"weights"`
	Functions []scoringFunctionDTO `json:"functions,omitempty"`
}

type performanceDTO struct {
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1"`
	NDCG        float64   `json:"ndcg"`
	MRR         float64   `json:"mrr"`
	TestCases   int       `json:"test_cases"`
	Skipped     int       `json:"skipped"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

type modelResponseDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Version     int                  `json:"version"`
	Weights     []fieldWeightDTO     `json:"weights"`
	Functions   []scoringFunctionDTO `json:"functions,omitempty"`
	Active      bool                 `json:"active"`
	Performance *performanceDTO      `json:"performance,omitempty"`
}

type evaluateRequestDTO struct {
	TestCaseIDs []string `json:"test_case_ids,omitempty"`
}

type expectedResultDTO struct {
	DocumentID    string  `json:"document_id"`
	ExpectedRank  int     `json:"expected_rank,omitempty"`
	ExpectedScore float64 `json:"expected_score,omitempty"`
}

type testCaseRequestDTO struct {
	QueryID   string              `json:"query_id"`
	QueryText string              `json:"query_text"`
	Expected  []expectedResultDTO `json:"expected"`
}

type modelListDTO struct {
	Models []modelResponseDTO `json:"models"`
}

type testCaseListDTO struct {
	QueryIDs []string `json:"query_ids"`
}

type judgmentListDTO struct {
	Judgments []judgmentDTO `json:"judgments"`
}

type healthDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type judgmentRequestDTO struct {
	DocumentID  string `json:"document_id"`
	Grade       int    `json:"grade"`
	AnnotatorID string `json:"annotator_id,omitempty"`
}

type judgmentDTO struct {
	QueryID     string    `json:"query_id"`
	DocumentID  string    `json:"document_id"`
	Grade       int       `json:"grade"`
	AnnotatorID string    `json:"annotator_id,omitempty"`
	JudgedAt    time.Time `json:"judged_at"`
}

func weightsFromDTO(dtos []fieldWeightDTO) []scoring.FieldWeight {
	weights := make([]scoring.FieldWeight, len(dtos))
	for i, w := range dtos {
		weights[i] = scoring.FieldWeight{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}
	return weights
}

func functionsFromDTO(dtos []scoringFunctionDTO) ([]scoring.Function, error) {
	functions := make([]scoring.Function, 0, len(dtos))
	for _, dto := range dtos {
		var (
			f   scoring.Function
			err error
		)
		switch dto.Type {
		case scoring.TypeFieldValueFactor:
			f, err = scoring.NewFieldValueFactor(dto.Field, dto.Factor, dto.Modifier, dto.Missing)
		case scoring.TypeScriptScore:
			f, err = scoring.NewScriptScore(dto.Source, dto.Params)
		case scoring.TypeDecay:
			f, err = scoring.NewDecay(dto.Kind, dto.Field, dto.Origin, dto.Scale, dto.Offset, dto.Rate)
		case scoring.TypeRandomScore:
			f, err = scoring.NewRandomScore(dto.Seed)
		default:
			return nil, fmt.Errorf("%w: unknown scoring function type %q", domain.ErrValidation, dto.Type)
		}
		if err != nil {
			return nil, err
		}
		functions = append(functions, f)
	}
	return functions, nil
}

func functionToDTO(f scoring.Function) scoringFunctionDTO {
	switch fn := f.(type) {
	case scoring.FieldValueFactor:
		return scoringFunctionDTO{
			Type: scoring.TypeFieldValueFactor,
			Field: fn.Field, Factor: fn.Factor, Modifier: fn.Modifier, Missing: fn.Missing,
		}
	case scoring.ScriptScore:
		return scoringFunctionDTO{Type: scoring.TypeScriptScore, Source: fn.Source, Params: fn.Params}
	case scoring.Decay:
		return scoringFunctionDTO{
			Type: scoring.TypeDecay,
			Kind: fn.Kind, Field: fn.Field, Origin: fn.Origin,
			Scale: fn.Scale, Offset: fn.Offset, Rate: fn.Rate,
		}
	case scoring.RandomScore:
		return scoringFunctionDTO{Type: scoring.TypeRandomScore, Seed: fn.Seed}
	default:
		return scoringFunctionDTO{Type: f.Type()}
	}
}

func modelToDTO(m *scoring.Model) modelResponseDTO {
	weights := make([]fieldWeightDTO, len(m.Weights()))
	for i, w := range m.Weights() {
		weights[i] = fieldWeightDTO{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}
	functions := make([]scoringFunctionDTO, len(m.Functions()))
	for i, f := range m.Functions() {
		functions[i] = functionToDTO(f)
	}
	dto := modelResponseDTO{
		ID:        m.ID(),
		Name:      m.Name(),
		Version:   m.Version(),
		Weights:   weights,
		Functions: functions,
		Active:    m.IsActive(),
	}
	if p := m.Performance(); p != nil {
		dto.Performance = performanceToDTO(*p)
	}
	return dto
}

func performanceToDTO(p scoring.Performance) *performanceDTO {
	return &performanceDTO{
		Precision: p.Precision, Recall: p.Recall, F1: p.F1,
		NDCG: p.NDCG, MRR: p.MRR,
		TestCases: p.TestCases, Skipped: p.Skipped, EvaluatedAt: p.EvaluatedAt,
	}
}

func expectedFromDTO(dtos []expectedResultDTO) []scoring.ExpectedResult {
	expected := make([]scoring.ExpectedResult, len(dtos))
	for i, e := range dtos {
		expected[i] = scoring.ExpectedResult{
			DocumentID:    e.DocumentID,
			ExpectedRank:  e.ExpectedRank,
			ExpectedScore: e.ExpectedScore,
		}
	}
	return expected
}

func testCaseToDTO(tc *scoring.TestCase) testCaseRequestDTO {
	expected := make([]expectedResultDTO, len(tc.Expected))
	for i, e := range tc.Expected {
		expected[i] = expectedResultDTO{
			DocumentID:    e.DocumentID,
			ExpectedRank:  e.ExpectedRank,
			ExpectedScore: e.ExpectedScore,
		}
	}
	return testCaseRequestDTO{QueryID: tc.QueryID, QueryText: tc.QueryText, Expected: expected}
}

func judgmentToDTO(j scoring.Judgment) judgmentDTO {
	return judgmentDTO{
		QueryID:     j.QueryID,
		DocumentID:  j.DocumentID,
		Grade:       j.Grade,
		AnnotatorID: j.AnnotatorID,
		JudgedAt:    j.JudgedAt,
	}
}
