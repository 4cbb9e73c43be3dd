package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/truongngoctrac/claims-search/internal/domain"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
)

// Translator substitutes whole words through per-language-pair term
// dictionaries. Translation is deterministic and never fails: unknown words
// pass through unchanged.
type Translator struct {
	mappings map[string]domlang.Mapping
}

// NewTranslator builds a translator over the given mappings.
func NewTranslator(mappings []domlang.Mapping) *Translator {
	t := &Translator{mappings: make(map[string]domlang.Mapping, len(mappings))}
	for _, m := range mappings {
		t.mappings[pairKey(m.SourceLang, m.TargetLang)] = m
	}
	return t
}

// AddMapping registers or replaces one language pair's dictionary.
func (t *Translator) AddMapping(m domlang.Mapping) error {
	if m.SourceLang == "" || m.TargetLang == "" {
		return fmt.Errorf("%w: translation mapping requires source and target languages", domain.ErrValidation)
	}
	t.mappings[pairKey(m.SourceLang, m.TargetLang)] = m
	return nil
}

// HasPair reports whether a dictionary exists for the language pair.
func (t *Translator) HasPair(src, dst string) bool {
	_, ok := t.mappings[pairKey(src, dst)]
	return ok
}

// Translate rewrites text word by word, case-insensitively, through the
// src→dst dictionary. Multi-word dictionary phrases are matched longest
// first. Without a dictionary for the pair, the text comes back unchanged.
func (t *Translator) Translate(text, src, dst string) string {
	if src == dst {
		return text
	}
	m, ok := t.mappings[pairKey(src, dst)]
	if !ok || len(m.Terms) == 0 {
		return text
	}

	words := strings.Fields(norm.NFC.String(text))
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := false
		// Longest phrase match first, up to 3 words.
		for span := min(3, len(words)-i); span >= 1; span-- {
			phrase := strings.ToLower(strings.Join(words[i:i+span], " "))
			if replacement, ok := lookupTerm(m.Terms, phrase); ok {
				out = append(out, replacement)
				i += span
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

func lookupTerm(terms map[string]string, phrase string) (string, bool) {
	if v, ok := terms[phrase]; ok {
		return v, true
	}
	// Dictionary keys may carry diacritics in either normal form.
	if v, ok := terms[norm.NFC.String(phrase)]; ok {
		return v, true
	}
	return "", false
}

func pairKey(src, dst string) string {
	return src + ":" + dst
}
