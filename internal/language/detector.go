// Package language implements script-based language detection, dictionary
// translation, and the multi-language query fan-out.
package language

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/unicode/norm"

	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
)

const (
	detectCacheSize = 4096
	detectCacheTTL  = 30 * time.Minute

	// A language qualifies as an alternative when its raw score is within
	// 40% of the best one. Mixed-script text therefore reports every
	// plausible language instead of silently picking one.
	alternativeRatio = 0.6
	maxAlternatives  = 3

	// Distinctive non-ASCII characters outweigh shared base-latin letters.
	distinctiveWeight = 3.0
	sharedLatinWeight = 0.5
)

// Supported language codes.
const (
	Vietnamese = "vi"
	English    = "en"
	Chinese    = "zh"
	Japanese   = "ja"
	Korean     = "ko"
	Thai       = "th"
	French     = "fr"
	Spanish    = "es"
)

type runeRange struct{ lo, hi rune }

// Distinctive script and diacritic ranges per language. Base-latin letters
// are handled separately because several languages share them.
var distinctiveRanges = map[string][]runeRange{
	Vietnamese: {
		{0x1EA0, 0x1EF9}, // latin extended additional: ạ…ỹ
		{0x0102, 0x0103}, // ă
		{0x0110, 0x0111}, // đ
		{0x01A0, 0x01B0}, // ơ ư
		{0x00E0, 0x00E3}, // à á â ã
		{0x00E8, 0x00EA}, // è é ê
		{0x00EC, 0x00ED}, // ì í
		{0x00F2, 0x00F5}, // ò ó ô õ
		{0x00F9, 0x00FA}, // ù ú
		{0x00FD, 0x00FD}, // ý
	},
	Chinese:  {{0x4E00, 0x9FFF}, {0x3400, 0x4DBF}},
	Japanese: {{0x3040, 0x309F}, {0x30A0, 0x30FF}},
	Korean:   {{0xAC00, 0xD7AF}, {0x1100, 0x11FF}},
	Thai:     {{0x0E00, 0x0E7F}},
	French: {
		{0x00E0, 0x00E0}, {0x00E2, 0x00E2}, {0x00E7, 0x00E7},
		{0x00E8, 0x00EB}, {0x00EE, 0x00EF}, {0x00F4, 0x00F4},
		{0x00F9, 0x00FB}, {0x00FC, 0x00FC}, {0x0153, 0x0153},
	},
	Spanish: {
		{0x00E1, 0x00E1}, {0x00E9, 0x00E9}, {0x00ED, 0x00ED},
		{0x00F1, 0x00F1}, {0x00F3, 0x00F3}, {0x00FA, 0x00FA},
		{0x00FC, 0x00FC}, {0x00BF, 0x00BF}, {0x00A1, 0x00A1},
	},
}

// latinLanguages share plain a-z letters; English gets full weight so it
// wins unaccented text.
var latinWeights = map[string]float64{
	English:    1.0,
	Vietnamese: sharedLatinWeight,
	French:     sharedLatinWeight,
	Spanish:    sharedLatinWeight,
}

// Detector scores text against per-language character ranges. Detections
// are cached by exact input text.
type Detector struct {
	cache *expirable.LRU[string, domlang.Detection]
}

// NewDetector builds a detector with its exact-text cache.
func NewDetector() *Detector {
	return &Detector{
		cache: expirable.NewLRU[string, domlang.Detection](detectCacheSize, nil, detectCacheTTL),
	}
}

// Detect returns the top-scoring language plus up to three alternatives
// whose scores are close to the best. Empty or symbol-only text detects as
// English with zero confidence.
func (d *Detector) Detect(text string) domlang.Detection {
	if cached, ok := d.cache.Get(text); ok {
		return cached
	}

	normalized := norm.NFC.String(strings.ToLower(text))
	scores := make(map[string]float64, len(distinctiveRanges)+1)
	letters := 0
	for _, r := range normalized {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r >= 'a' && r <= 'z' {
			for lang, w := range latinWeights {
				scores[lang] += w
			}
			continue
		}
		for lang, ranges := range distinctiveRanges {
			for _, rr := range ranges {
				if r >= rr.lo && r <= rr.hi {
					scores[lang] += distinctiveWeight
					break
				}
			}
		}
	}

	detection := score(scores, letters)
	d.cache.Add(text, detection)
	return detection
}

func score(scores map[string]float64, letters int) domlang.Detection {
	if letters == 0 || len(scores) == 0 {
		return domlang.Detection{Language: English, Confidence: 0}
	}

	ranked := make([]domlang.Score, 0, len(scores))
	for lang, s := range scores {
		ranked = append(ranked, domlang.Score{Code: lang, Confidence: s / float64(letters)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Code < ranked[j].Code
	})

	best := ranked[0]
	var alternatives []domlang.Score
	for _, cand := range ranked[1:] {
		if cand.Confidence < best.Confidence*alternativeRatio {
			break
		}
		alternatives = append(alternatives, domlang.Score{
			Code:       cand.Code,
			Confidence: clamp01(cand.Confidence),
		})
		if len(alternatives) == maxAlternatives {
			break
		}
	}

	return domlang.Detection{
		Language:     best.Code,
		Confidence:   clamp01(best.Confidence),
		Alternatives: alternatives,
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
