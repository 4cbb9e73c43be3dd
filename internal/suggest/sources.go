package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
	"github.com/truongngoctrac/claims-search/internal/store"
)

// Table keys. Values are hash fields keyed by normalized query text.
const (
	keyPopular      = "search:suggest:popular"
	keyTrending     = "search:suggest:trending"
	keyCorrections  = "search:suggest:corrections"
	keyFrequency    = "search:suggest:frequency"
	keyPersonalized = "search:suggest:user:%s"
)

// indexCandidates issues one suggest-only backend call covering every
// index-backed source in the request.
func (s *Service) indexCandidates(
	ctx context.Context, text string, configs []domsuggest.Config,
) ([]domsuggest.Candidate, error) {
	suggesters := query.Tree{}
	for _, cfg := range configs {
		size := cfg.Size
		if size <= 0 {
			size = s.defaultSize
		}
		switch cfg.Source {
		case domsuggest.SourceCompletion:
			suggesters[string(cfg.Source)] = query.Tree{
				"prefix": text,
				"completion": query.Tree{
					"field":           cfg.Field,
					"size":            size,
					"skip_duplicates": true,
				},
			}
		case domsuggest.SourceTerm:
			suggesters[string(cfg.Source)] = query.Tree{
				"text": text,
				"term": query.Tree{
					"field":        cfg.Field,
					"size":         size,
					"suggest_mode": "popular",
				},
			}
		case domsuggest.SourcePhrase:
			suggesters[string(cfg.Source)] = query.Tree{
				"text": text,
				"phrase": query.Tree{
					"field": cfg.Field,
					"size":  size,
				},
			}
		}
	}
	if len(suggesters) == 0 {
		return nil, nil
	}

	options, err := s.index.Suggest(ctx, suggesters)
	if err != nil {
		return nil, fmt.Errorf("index suggesters: %w", err)
	}

	var out []domsuggest.Candidate
	for name, opts := range options {
		source := domsuggest.SourceType(name)
		for _, opt := range opts {
			score := opt.Score
			if score == 0 {
				score = 1
			}
			out = append(out, domsuggest.Candidate{
				Text:      opt.Text,
				Score:     score,
				Source:    source,
				Frequency: opt.Freq,
			})
		}
	}
	return out, nil
}

// popularCandidates matches the popular-query table by substring,
// frequency-weighted.
func (s *Service) popularCandidates(ctx context.Context, text string) ([]domsuggest.Candidate, error) {
	table, err := s.tables.HGetAll(ctx, keyPopular)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("popular table: %w", err)
	}
	needle := strings.ToLower(text)

	var out []domsuggest.Candidate
	for q, raw := range table {
		if !strings.Contains(strings.ToLower(q), needle) {
			continue
		}
		count, _ := strconv.ParseInt(raw, 10, 64)
		if count <= 0 {
			continue
		}
		out = append(out, domsuggest.Candidate{
			Text:      q,
			Score:     1,
			Source:    domsuggest.SourcePopular,
			Frequency: count,
		})
	}
	return out, nil
}

// trendingCandidates reads the growth-weighted trending table. Values carry
// the precomputed growth score, maintained outside this service.
func (s *Service) trendingCandidates(ctx context.Context, text string) ([]domsuggest.Candidate, error) {
	table, err := s.tables.HGetAll(ctx, keyTrending)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trending table: %w", err)
	}
	needle := strings.ToLower(text)

	var out []domsuggest.Candidate
	for q, raw := range table {
		if !strings.Contains(strings.ToLower(q), needle) {
			continue
		}
		growth, err := strconv.ParseFloat(raw, 64)
		if err != nil || growth <= 0 {
			continue
		}
		out = append(out, domsuggest.Candidate{
			Text:   q,
			Score:  growth,
			Source: domsuggest.SourceTrending,
		})
	}
	return out, nil
}

// correctionCandidates rewrites the query word by word through the
// precomputed spelling table. Entries are "replacement|confidence".
func (s *Service) correctionCandidates(ctx context.Context, text string) ([]domsuggest.Candidate, error) {
	table, err := s.tables.HGetAll(ctx, keyCorrections)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("correction table: %w", err)
	}
	if len(table) == 0 {
		return nil, nil
	}

	words := strings.Fields(strings.ToLower(text))
	corrected := make([]string, len(words))
	confidence := 1.0
	changed := false
	for i, w := range words {
		corrected[i] = w
		raw, ok := table[w]
		if !ok {
			continue
		}
		replacement, conf := splitCorrection(raw)
		if replacement == "" {
			continue
		}
		corrected[i] = replacement
		confidence *= conf
		changed = true
	}
	if !changed {
		return nil, nil
	}

	return []domsuggest.Candidate{{
		Text:   strings.Join(corrected, " "),
		Score:  confidence,
		Source: domsuggest.SourceCorrection,
	}}, nil
}

func splitCorrection(raw string) (string, float64) {
	replacement, confPart, found := strings.Cut(raw, "|")
	if !found {
		return raw, 0.8
	}
	conf, err := strconv.ParseFloat(confPart, 64)
	if err != nil || conf <= 0 || conf > 1 {
		conf = 0.8
	}
	return replacement, conf
}

// synonymCandidates substitutes each dictionary entry with its alternatives,
// one replacement per candidate. Keys may span several words (Vietnamese
// compounds like "bệnh viện"); longest match wins.
func (s *Service) synonymCandidates(text string) []domsuggest.Candidate {
	if len(s.synonyms) == 0 {
		return nil
	}
	words := strings.Fields(strings.ToLower(text))

	maxSpan := 1
	for key := range s.synonyms {
		if n := len(strings.Fields(key)); n > maxSpan {
			maxSpan = n
		}
	}

	var out []domsuggest.Candidate
	for i := 0; i < len(words); {
		matched := 1
		for span := min(maxSpan, len(words)-i); span >= 1; span-- {
			phrase := strings.Join(words[i:i+span], " ")
			alts, ok := s.synonyms[phrase]
			if !ok {
				continue
			}
			for _, alt := range alts {
				variant := make([]string, 0, len(words))
				variant = append(variant, words[:i]...)
				variant = append(variant, alt)
				variant = append(variant, words[i+span:]...)
				out = append(out, domsuggest.Candidate{
					Text:   strings.Join(variant, " "),
					Score:  1,
					Source: domsuggest.SourceSemantic,
				})
			}
			matched = span
			break
		}
		i += matched
	}
	return out
}

// personalizedCandidates matches the user's prior queries by substring.
func (s *Service) personalizedCandidates(
	ctx context.Context, text string, user *domsuggest.UserContext,
) ([]domsuggest.Candidate, error) {
	table, err := s.tables.HGetAll(ctx, fmt.Sprintf(keyPersonalized, user.UserID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("personalized table for %s: %w", user.UserID, err)
	}
	needle := strings.ToLower(text)

	seen := make(map[string]bool, len(table))
	var out []domsuggest.Candidate
	for q, raw := range table {
		if !strings.Contains(strings.ToLower(q), needle) {
			continue
		}
		count, _ := strconv.ParseInt(raw, 10, 64)
		seen[strings.ToLower(q)] = true
		out = append(out, domsuggest.Candidate{
			Text:      q,
			Score:     1,
			Source:    domsuggest.SourcePersonalized,
			Frequency: count,
		})
	}
	// Session history counts too, without a stored frequency.
	for _, q := range user.History {
		key := strings.ToLower(q)
		if seen[key] || !strings.Contains(key, needle) {
			continue
		}
		seen[key] = true
		out = append(out, domsuggest.Candidate{
			Text:   q,
			Score:  1,
			Source: domsuggest.SourcePersonalized,
		})
	}
	return out, nil
}
