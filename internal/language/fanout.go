package language

import (
	"fmt"
	"sort"

	"github.com/truongngoctrac/claims-search/internal/domain"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// Query boosts. The native language dominates; every fan-out target is
// discounted for translation uncertainty.
const (
	nativeBoost  = 2.0
	fanoutBoost  = 0.8
	neutralBoost = 1.0
)

// Per-language match strategies tolerate partial matches: exact phrases
// score highest, prefix matches lowest.
var matchStrategies = []struct {
	matchType string
	factor    float64
}{
	{"best_fields", 1.0},
	{"phrase", 1.5},
	{"phrase_prefix", 0.8},
}

var defaultFields = []string{
	"claim_number", "diagnosis", "treatment", "patient_name",
	"provider_name", "facility_name", "notes",
}

// Request describes one multi-language query expansion.
type Request struct {
	Text   string
	Fields []string
	// SourceLanguage skips auto-detection when set.
	SourceLanguage string
	// CrossLanguage fans the query out to the target languages.
	CrossLanguage   bool
	TargetLanguages []string
	// NativeBoost doubles the source-language sub-query weight.
	NativeBoost bool
}

// Result carries the expanded query plus what was detected, searched and
// translated, for caller transparency.
type Result struct {
	Query        query.Tree
	Detected     domlang.Detection
	Searched     []string
	Translations map[string]string
}

// Coordinator expands one query into a boosted should-union of per-language
// sub-queries.
type Coordinator struct {
	detector   *Detector
	translator *Translator
	configs    map[string]domlang.Config
	fallback   string
}

// NewCoordinator wires the fan-out coordinator over the configured
// languages. fallback is the language used when detection lands on one that
// is not configured; an explicitly requested unknown language still fails.
func NewCoordinator(detector *Detector, translator *Translator, configs []domlang.Config, fallback string) *Coordinator {
	byCode := make(map[string]domlang.Config, len(configs))
	for _, cfg := range configs {
		byCode[cfg.Code] = cfg
	}
	return &Coordinator{detector: detector, translator: translator, configs: byCode, fallback: fallback}
}

// DetectLanguage exposes detection for the API surface.
func (c *Coordinator) DetectLanguage(text string) (domlang.Detection, error) {
	if text == "" {
		return domlang.Detection{}, fmt.Errorf("%w: detection text is empty", domain.ErrValidation)
	}
	return c.detector.Detect(text), nil
}

// Translate exposes dictionary translation for the API surface.
func (c *Coordinator) Translate(text, src, dst string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: translation text is empty", domain.ErrValidation)
	}
	if _, ok := c.configs[src]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownLanguage, src)
	}
	if _, ok := c.configs[dst]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownLanguage, dst)
	}
	return c.translator.Translate(text, src, dst), nil
}

// Expand builds the per-language sub-queries for one request. The scope is
// always sourceLanguage plus, with cross-language search on, every
// configured target; each language contributes its three match strategies
// and at least one sub-query must match.
func (c *Coordinator) Expand(req Request) (Result, error) {
	if req.Text == "" {
		return Result{}, fmt.Errorf("%w: query text is empty", domain.ErrValidation)
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}

	var detected domlang.Detection
	source := req.SourceLanguage
	if source == "" {
		detected = c.detector.Detect(req.Text)
		source = detected.Language
		if _, ok := c.configs[source]; !ok && c.fallback != "" {
			source = c.fallback
		}
	} else {
		detected = domlang.Detection{Language: source, Confidence: 1}
	}
	if _, ok := c.configs[source]; !ok {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownLanguage, source)
	}

	searched := []string{source}
	translations := map[string]string{source: req.Text}
	if req.CrossLanguage {
		for _, target := range c.targets(source, req.TargetLanguages) {
			searched = append(searched, target)
			translations[target] = c.translator.Translate(req.Text, source, target)
		}
	}

	sourceBoost := neutralBoost
	if req.NativeBoost {
		sourceBoost = nativeBoost
	}

	var should []any
	for _, lang := range searched {
		boost := fanoutBoost
		if lang == source {
			boost = sourceBoost
		}
		should = append(should, languageSubQueries(translations[lang], fields, boost)...)
	}

	return Result{
		Query: query.Tree{
			"bool": query.Tree{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		Detected:     detected,
		Searched:     searched,
		Translations: translations,
	}, nil
}

// targets resolves the fan-out scope: the requested targets filtered to
// configured languages, or every configured language when none are named.
// The source language never fans out to itself.
func (c *Coordinator) targets(source string, requested []string) []string {
	var out []string
	if len(requested) > 0 {
		for _, t := range requested {
			if t == source {
				continue
			}
			if _, ok := c.configs[t]; ok {
				out = append(out, t)
			}
		}
		return out
	}
	for code := range c.configs {
		if code != source {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

func languageSubQueries(text string, fields []string, boost float64) []any {
	out := make([]any, 0, len(matchStrategies))
	for _, strategy := range matchStrategies {
		out = append(out, query.Tree{
			"multi_match": query.Tree{
				"query":  text,
				"fields": toAny(fields),
				"type":   strategy.matchType,
				"boost":  boost * strategy.factor,
			},
		})
	}
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
