package claimsearch

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
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
)

// Query is a raw search DSL clause.
type Query = map[string]any

// SearchRequest is one orchestrated search.
type SearchRequest struct {
	Text string
	// Query bypasses language expansion of Text when set.
	Query     Query
	Fields    []string
	From      int
	Size      int
	Highlight []string
	// ModelID selects a scoring model explicitly; empty uses the active one.
	ModelID string

	SourceLanguage  string
	CrossLanguage   bool
	TargetLanguages []string
	// NativeBoost doubles the source-language sub-query weight.
	NativeBoost bool

	Facets  []FacetConfig
	Filters []FacetFilter

	SuggestSources []SuggestSource
	SuggestSize    int
	UserID         string
}

// Hit is one matched document.
type Hit struct {
	ID         string
	Score      float64
	Source     map[string]any
	Highlights map[string][]string
}

// Hits is the primary result section.
type Hits struct {
	Total    int64
	MaxScore float64
	Items    []Hit
}

// BatchResult is one slot of a BatchSearch response. Err is set when the
// backend rejected that slot's query; the other slots are unaffected.
type BatchResult struct {
	Hits Hits
	Err  error
}

// LanguageInfo reports what the language stage detected and searched.
type LanguageInfo struct {
	Detected     string
	Confidence   float64
	Alternatives []LanguageScore
	Searched     []string
	Translations map[string]string
}

// LanguageScore is one detection candidate.
type LanguageScore struct {
	Code       string
	Confidence float64
}

// SearchResponse is the assembled search result. Degraded lists stages that
// failed softly and were dropped from the response.
type SearchResponse struct {
	Hits        Hits
	Took        time.Duration
	TimedOut    bool
	Facets      []FacetResult
	Suggestions []Suggestion
	Language    *LanguageInfo
	Degraded    []string
}

// Suggestion is one ranked query completion.
type Suggestion struct {
	Text      string
	Score     float64
	Source    string
	Frequency int64
}

// SuggestSource enables one suggestion source.
type SuggestSource struct {
	Source string // completion, term, phrase, popular, trending, corrections, semantic, personalized
	Field  string
	Size   int
}

// FacetConfig defines one facet. Type selects the variant; only the fields
// of that variant are read.
type FacetConfig struct {
	Field       string
	Type        string // terms, range, date_histogram, nested, geo_distance
	Size        int
	Order       string
	MinDocCount int
	Include     []string
	Exclude     []string
	Ranges      []FacetBound
	Interval    string
	Format      string
	TimeZone    string
	Path        string
	SubField    string
	Lat         float64
	Lon         float64
	Unit        string
}

// FacetBound is one explicit bucket boundary.
type FacetBound struct {
	Key  string
	From *float64
	To   *float64
}

// FacetFilter is an active facet selection.
type FacetFilter struct {
	Field      string
	Values     []string
	Range      *FacetBound
	Combinator string // or (default), and
}

// FacetBucket is one parsed value bucket.
type FacetBucket struct {
	Key      string
	DocCount int64
	From     *float64
	To       *float64
}

// FacetResult is the uniform parsed form of one facet.
type FacetResult struct {
	Field   string
	Type    string
	Buckets []FacetBucket
}

// FieldWeight boosts one document field in a scoring model.
type FieldWeight struct {
	Field  string
	Weight float64
	Boost  float64
}

// ScoringFunction is a tagged union over the supported function_score
// functions; Type selects the variant.
type ScoringFunction struct {
	Type     string // field_value_factor, script_score, decay, random_score
	Field    string
	Factor   float64
	Modifier string
	Missing  float64
	Source   string
	Params   map[string]any
	Kind     string // linear, exp, gauss
	Origin   any
	Scale    string
	Offset   string
	Rate     float64
	Seed     int64
}

// ModelSpec defines a scoring model to create or update.
type ModelSpec struct {
	ID        string
	Name      string
	Weights   []FieldWeight
	Functions []ScoringFunction
}

// Model is a stored scoring model.
type Model struct {
	ID          string
	Name        string
	Version     int
	Active      bool
	Weights     []FieldWeight
	Performance *Performance
}

// Performance is an offline evaluation snapshot.
type Performance struct {
	Precision   float64
	Recall      float64
	F1          float64
	NDCG        float64
	MRR         float64
	TestCases   int
	Skipped     int
	EvaluatedAt time.Time
}

// ExpectedResult is one expected hit of a test case.
type ExpectedResult struct {
	DocumentID    string
	ExpectedRank  int
	ExpectedScore float64
}

// TestCase is a judged query used for offline model evaluation.
type TestCase struct {
	QueryID   string
	QueryText string
	Expected  []ExpectedResult
}

func facetConfigToDomain(fc FacetConfig) (facet.Config, error) {
	switch facet.Type(fc.Type) {
	case facet.Terms:
		var params *facet.TermsParams
		if fc.MinDocCount > 0 || len(fc.Include) > 0 || len(fc.Exclude) > 0 {
			params = &facet.TermsParams{
				MinDocCount: fc.MinDocCount,
				Include:     fc.Include,
				Exclude:     fc.Exclude,
			}
		}
		return facet.NewTerms(fc.Field, fc.Size, facet.Order(fc.Order), params)
	case facet.Range:
		return facet.NewRange(fc.Field, boundsToDomain(fc.Ranges))
	case facet.DateHistogram:
		return facet.NewDateHistogram(fc.Field, facet.DateHistogramParams{
			Interval: fc.Interval,
			Format:   fc.Format,
			TimeZone: fc.TimeZone,
		})
	case facet.Nested:
		return facet.NewNested(fc.Field, fc.Size, facet.NestedParams{
			Path:     fc.Path,
			SubField: fc.SubField,
		})
	case facet.GeoDistance:
		return facet.NewGeoDistance(fc.Field, facet.GeoParams{
			Lat:    fc.Lat,
			Lon:    fc.Lon,
			Unit:   fc.Unit,
			Ranges: boundsToDomain(fc.Ranges),
		})
	default:
		return facet.Config{}, fmt.Errorf("%w: %q", domain.ErrUnknownFacetType, fc.Type)
	}
}

func facetConfigsToDomain(fcs []FacetConfig) ([]facet.Config, error) {
	configs := make([]facet.Config, 0, len(fcs))
	for _, fc := range fcs {
		cfg, err := facetConfigToDomain(fc)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func facetFiltersToDomain(ffs []FacetFilter) []facet.Filter {
	filters := make([]facet.Filter, 0, len(ffs))
	for _, ff := range ffs {
		f := facet.Filter{
			Field:      ff.Field,
			Values:     ff.Values,
			Combinator: facet.Combinator(ff.Combinator),
		}
		if ff.Range != nil {
			f.Range = &facet.Bound{Key: ff.Range.Key, From: ff.Range.From, To: ff.Range.To}
		}
		filters = append(filters, f)
	}
	return filters
}

func boundsToDomain(bs []FacetBound) []facet.Bound {
	bounds := make([]facet.Bound, len(bs))
	for i, b := range bs {
		bounds[i] = facet.Bound{Key: b.Key, From: b.From, To: b.To}
	}
	return bounds
}

func suggestSourcesToDomain(ss []SuggestSource) []domsuggest.Config {
	configs := make([]domsuggest.Config, len(ss))
	for i, s := range ss {
		configs[i] = domsuggest.Config{Source: domsuggest.SourceType(s.Source), Field: s.Field, Size: s.Size}
	}
	return configs
}

func functionsToDomain(fns []ScoringFunction) ([]scoring.Function, error) {
	functions := make([]scoring.Function, 0, len(fns))
	for _, fn := range fns {
		var (
			f   scoring.Function
			err error
		)
		switch fn.Type {
		case scoring.TypeFieldValueFactor:
			f, err = scoring.NewFieldValueFactor(fn.Field, fn.Factor, fn.Modifier, fn.Missing)
		case scoring.TypeScriptScore:
			f, err = scoring.NewScriptScore(fn.Source, fn.Params)
		case scoring.TypeDecay:
			f, err = scoring.NewDecay(fn.Kind, fn.Field, fn.Origin, fn.Scale, fn.Offset, fn.Rate)
		case scoring.TypeRandomScore:
			f, err = scoring.NewRandomScore(fn.Seed)
		default:
			return nil, fmt.Errorf("%w: unknown scoring function type %q", domain.ErrValidation, fn.Type)
		}
		if err != nil {
			return nil, err
		}
		functions = append(functions, f)
	}
	return functions, nil
}

func weightsToDomain(ws []FieldWeight) []scoring.FieldWeight {
	weights := make([]scoring.FieldWeight, len(ws))
	for i, w := range ws {
		weights[i] = scoring.FieldWeight{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}
	return weights
}

func modelFromDomain(m *scoring.Model) Model {
	weights := make([]FieldWeight, len(m.Weights()))
	for i, w := range m.Weights() {
		weights[i] = FieldWeight{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}
	out := Model{
		ID:      m.ID(),
		Name:    m.Name(),
		Version: m.Version(),
		Active:  m.IsActive(),
		Weights: weights,
	}
	if p := m.Performance(); p != nil {
		perf := performanceFromDomain(*p)
		out.Performance = &perf
	}
	return out
}

func performanceFromDomain(p scoring.Performance) Performance {
	return Performance{
		Precision: p.Precision, Recall: p.Recall, F1: p.F1,
		NDCG: p.NDCG, MRR: p.MRR,
		TestCases: p.TestCases, Skipped: p.Skipped, EvaluatedAt: p.EvaluatedAt,
	}
}

func hitsFromDomain(h domsearch.Hits) Hits {
	items := make([]Hit, len(h.Items))
	for i, hit := range h.Items {
		items[i] = Hit{ID: hit.ID, Score: hit.Score, Source: hit.Source, Highlights: hit.Highlights}
	}
	return Hits{Total: h.Total, MaxScore: h.MaxScore, Items: items}
}

func languageInfoFromDetection(d domlang.Detection) LanguageInfo {
	info := LanguageInfo{Detected: d.Language, Confidence: d.Confidence}
	for _, alt := range d.Alternatives {
		info.Alternatives = append(info.Alternatives, LanguageScore{Code: alt.Code, Confidence: alt.Confidence})
	}
	return info
}

func responseFromDomain(resp *searchsvc.Response) *SearchResponse {
	out := &SearchResponse{
		Hits:     hitsFromDomain(resp.Hits),
		Took:     resp.Took,
		TimedOut: resp.TimedOut,
		Degraded: resp.Degraded,
	}
	for _, f := range resp.Facets {
		buckets := make([]FacetBucket, len(f.Buckets))
		for i, b := range f.Buckets {
			buckets[i] = FacetBucket{Key: b.Key, DocCount: b.DocCount, From: b.From, To: b.To}
		}
		out.Facets = append(out.Facets, FacetResult{Field: f.Field, Type: string(f.FacetType), Buckets: buckets})
	}
	for _, s := range resp.Suggestions {
		out.Suggestions = append(out.Suggestions, Suggestion{
			Text: s.Text, Score: s.Score, Source: string(s.Source), Frequency: s.Frequency,
		})
	}
	if resp.Language != nil {
		info := languageInfoFromDetection(resp.Language.Detected)
		info.Searched = resp.Language.Searched
		info.Translations = resp.Language.Translations
		out.Language = &info
	}
	return out
}

func queryToTree(q Query) query.Tree {
	if q == nil {
		return nil
	}
	return query.Tree(q)
}
