package relevance

import (
	"fmt"
	"strings"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// leafClauses are the clause kinds whose field keys receive weight boosts.
var leafClauses = []string{"match", "match_phrase", "match_phrase_prefix", "term", "prefix"}

// applyModel rewrites a request body so the model's field weights and
// scoring functions shape ranking. Two steps: boost injection into matching
// leaf clauses, then a function_score wrap when the model has functions.
func applyModel(body query.Tree, m *scoring.Model) query.Tree {
	out := body.Clone()

	boosts := make(map[string]float64, len(m.Weights()))
	for _, w := range m.Weights() {
		boosts[w.Field] = effectiveBoost(w)
	}

	if len(boosts) > 0 {
		out.Walk(func(node query.Tree) {
			injectLeafBoosts(node, boosts)
			injectMultiMatchBoosts(node, boosts)
		})
	}

	if len(m.Functions()) == 0 {
		return out
	}

	inner, ok := out.Sub("query")
	if !ok {
		// Bare query tree: wrap the whole thing.
		return query.Tree{"function_score": functionScoreBody(out, m)}
	}
	out["query"] = query.Tree{"function_score": functionScoreBody(inner, m)}
	return out
}

func effectiveBoost(w scoring.FieldWeight) float64 {
	if w.Boost > 0 {
		return w.Boost
	}
	if w.Weight > 0 {
		return w.Weight
	}
	return 1
}

// injectLeafBoosts upgrades short-form leaf clauses on weighted fields to
// object form carrying the boost. Explicit caller boosts are kept.
func injectLeafBoosts(node query.Tree, boosts map[string]float64) {
	for _, kind := range leafClauses {
		clause, ok := node.Sub(kind)
		if !ok {
			continue
		}
		for field, v := range clause {
			boost, weighted := boosts[field]
			if !weighted {
				continue
			}
			if obj, ok := query.AsTree(v); ok {
				if _, has := obj["boost"]; !has {
					obj["boost"] = boost
				}
				continue
			}
			valueKey := "query"
			if kind == "term" || kind == "prefix" {
				valueKey = "value"
			}
			clause[field] = query.Tree{valueKey: v, "boost": boost}
		}
	}
}

// injectMultiMatchBoosts appends ^boost to weighted entries in multi_match
// field lists that carry no explicit boost yet.
func injectMultiMatchBoosts(node query.Tree, boosts map[string]float64) {
	mm, ok := node.Sub("multi_match")
	if !ok {
		return
	}
	fields, ok := mm["fields"].([]any)
	if !ok {
		return
	}
	for i, f := range fields {
		name, ok := f.(string)
		if !ok || strings.Contains(name, "^") {
			continue
		}
		if boost, weighted := boosts[name]; weighted {
			fields[i] = fmt.Sprintf("%s^%g", name, boost)
		}
	}
}

// functionScoreBody wraps a query in the model's scoring functions with
// multiplicative score and boost modes.
func functionScoreBody(inner query.Tree, m *scoring.Model) query.Tree {
	functions := make([]any, len(m.Functions()))
	for i, f := range m.Functions() {
		functions[i] = f.Clause()
	}
	return query.Tree{
		"query":      inner,
		"functions":  functions,
		"score_mode": "multiply",
		"boost_mode": "multiply",
	}
}
