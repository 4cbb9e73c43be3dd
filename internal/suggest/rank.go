package suggest

import (
	"math"
	"sort"
	"strings"

	domsuggest "github.com/truongngoctrac/claims-search/internal/domain/suggest"
)

// rank merges candidates from every source into the final ordered list:
// dedup on lowercased text keeping the higher raw score, then apply the
// source-type boost, the character-similarity boost against the input text,
// and the frequency factor when a frequency is known.
func rank(candidates []domsuggest.Candidate, text string, size int) []domsuggest.Candidate {
	byKey := make(map[string]domsuggest.Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if key == "" {
			continue
		}
		prev, seen := byKey[key]
		if !seen {
			byKey[key] = c
			order = append(order, key)
			continue
		}
		if c.Score > prev.Score {
			if c.Frequency == 0 {
				c.Frequency = prev.Frequency
			}
			byKey[key] = c
		} else if prev.Frequency == 0 && c.Frequency > 0 {
			prev.Frequency = c.Frequency
			byKey[key] = prev
		}
	}

	ranked := make([]domsuggest.Candidate, 0, len(byKey))
	for _, key := range order {
		c := byKey[key]
		score := c.Score
		if boost, ok := domsuggest.TypeBoost[c.Source]; ok {
			score *= boost
		}
		score *= 1 + jaccardCharSimilarity(c.Text, text)*0.5
		if c.Frequency > 0 {
			score *= math.Log(float64(c.Frequency)+1) * 0.1
		}
		c.Score = score
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if size > 0 && len(ranked) > size {
		ranked = ranked[:size]
	}
	return ranked
}

// jaccardCharSimilarity compares the character sets of two strings,
// case-insensitively and ignoring spaces.
func jaccardCharSimilarity(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range strings.ToLower(s) {
		if r == ' ' {
			continue
		}
		set[r] = true
	}
	return set
}
