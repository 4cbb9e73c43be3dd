// Package language defines language configs, translation mappings, and
// detection results for cross-language search.
package language

import (
	"fmt"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain"
)

// Config describes one searchable language.
type Config struct {
	Code            string
	AnalyzerID      string
	Stopwords       []string
	Stemmer         string
	Transliteration bool
}

// NewConfig validates and builds a language config.
func NewConfig(code, analyzerID string, stopwords []string, stemmer string, transliteration bool) (Config, error) {
	if code == "" {
		return Config{}, fmt.Errorf("%w: language code is required", domain.ErrValidation)
	}
	if analyzerID == "" {
		analyzerID = "standard"
	}
	return Config{
		Code:            code,
		AnalyzerID:      analyzerID,
		Stopwords:       stopwords,
		Stemmer:         stemmer,
		Transliteration: transliteration,
	}, nil
}

// Mapping is a term-to-term translation table between two languages.
type Mapping struct {
	SourceLang  string
	TargetLang  string
	Terms       map[string]string
	LastUpdated time.Time
}

// NewMapping validates and builds a translation mapping.
func NewMapping(sourceLang, targetLang string, terms map[string]string) (Mapping, error) {
	if sourceLang == "" || targetLang == "" {
		return Mapping{}, fmt.Errorf("%w: translation mapping requires source and target languages", domain.ErrValidation)
	}
	if sourceLang == targetLang {
		return Mapping{}, fmt.Errorf("%w: translation mapping source and target must differ", domain.ErrValidation)
	}
	if terms == nil {
		terms = map[string]string{}
	}
	return Mapping{
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		Terms:       terms,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// Score is one language candidate from detection.
type Score struct {
	Code       string
	Confidence float64
}

// Detection is the result of script-based language detection.
// Confidence is an uncalibrated heuristic in [0,1].
type Detection struct {
	Language     string
	Confidence   float64
	Alternatives []Score
}
