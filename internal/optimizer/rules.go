package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// Default clamp bounds. Oversized requests are trimmed, lossy by design.
const (
	maxFragmentSize = 150
	maxFragments    = 3
	maxAggTermsSize = 100
	defaultAggSize  = 50
	maxSortClauses  = 3
	defaultSize     = 20
	maxSize         = 100
)

// defaultSourceFields projects the claim document fields the platform UI
// renders, avoiding full _source fetches.
var defaultSourceFields = []any{
	"claim_number", "patient_name", "provider_name", "facility_name",
	"diagnosis", "treatment", "policy_type", "status", "claim_date", "amount",
}

func defaultRules() []Rule {
	return []Rule{
		{
			Name:      "wildcard_to_prefix",
			Priority:  10,
			Condition: func(t query.Tree) bool { return t.Count("wildcard") > 0 },
			Transform: rewriteWildcards,
		},
		{
			Name:      "bool_clause_reorder",
			Priority:  20,
			Condition: func(t query.Tree) bool { return t.Count("bool") > 0 },
			Transform: reorderBoolClauses,
		},
		{
			Name:     "source_projection",
			Priority: 30,
			Condition: func(t query.Tree) bool {
				_, hasSource := t["_source"]
				_, hasFields := t["fields"]
				return !hasSource && !hasFields
			},
			Transform: addSourceProjection,
		},
		{
			Name:      "highlight_clamp",
			Priority:  40,
			Condition: func(t query.Tree) bool { return t.Count("highlight") > 0 },
			Transform: clampHighlights,
		},
		{
			Name:      "aggregation_size_clamp",
			Priority:  50,
			Condition: func(t query.Tree) bool { return t.Count("aggs")+t.Count("aggregations") > 0 },
			Transform: clampAggregationSizes,
		},
		{
			Name:      "sort_clamp",
			Priority:  60,
			Condition: func(t query.Tree) bool { _, ok := t["sort"]; return ok },
			Transform: clampSort,
		},
		{
			Name:      "result_window",
			Priority:  70,
			Transform: clampResultWindow,
		},
	}
}

// rewriteWildcards converts wildcard clauses with exactly one trailing * and
// no other metacharacter into prefix clauses. Any other pattern is left
// untouched.
func rewriteWildcards(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	var notes []string

	out.Walk(func(node query.Tree) {
		wc, ok := node.Sub("wildcard")
		if !ok {
			return
		}
		for field, v := range wc {
			pattern, inner := wildcardPattern(v)
			if !isPrefixPattern(pattern) {
				continue
			}
			prefix := strings.TrimSuffix(pattern, "*")
			if inner != nil {
				rewritten := inner.Clone()
				delete(rewritten, "value")
				delete(rewritten, "wildcard")
				rewritten["value"] = prefix
				node["prefix"] = query.Tree{field: rewritten}
			} else {
				node["prefix"] = query.Tree{field: prefix}
			}
			delete(node, "wildcard")
			notes = append(notes, fmt.Sprintf("rewrote trailing wildcard on %q to prefix query", field))
			break
		}
	})
	return out, notes
}

// wildcardPattern extracts the pattern from either the short form
// {field: "ab*"} or the object form {field: {value: "ab*", boost: 2}}.
func wildcardPattern(v any) (string, query.Tree) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	if obj, ok := query.AsTree(v); ok {
		if s, ok := obj["value"].(string); ok {
			return s, obj
		}
		if s, ok := obj["wildcard"].(string); ok {
			return s, obj
		}
	}
	return "", nil
}

func isPrefixPattern(p string) bool {
	return len(p) > 1 &&
		strings.HasSuffix(p, "*") &&
		strings.Count(p, "*") == 1 &&
		!strings.Contains(p, "?")
}

// reorderBoolClauses orders the clauses inside every bool group so cheaper
// clauses evaluate first. The multiset of clauses is preserved exactly.
func reorderBoolClauses(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	var notes []string

	out.Walk(func(node query.Tree) {
		b, ok := node.Sub("bool")
		if !ok {
			return
		}
		for _, group := range []string{"filter", "must", "should", "must_not"} {
			clauses, ok := b[group].([]any)
			if ok && sortClausesByCost(clauses) {
				notes = append(notes, fmt.Sprintf("reordered %s clauses cheapest-first", group))
			}
		}
	})
	return out, notes
}

// sortClausesByCost stable-sorts clauses ascending by estimated cost.
// Reports whether any position changed.
func sortClausesByCost(clauses []any) bool {
	if len(clauses) < 2 {
		return false
	}
	costs := make([]float64, len(clauses))
	for i, c := range clauses {
		if t, ok := query.AsTree(c); ok {
			costs[i] = Complexity(t)
		}
	}
	idx := make([]int, len(clauses))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return costs[idx[i]] < costs[idx[j]] })

	changed := false
	reordered := make([]any, len(clauses))
	for pos, orig := range idx {
		reordered[pos] = clauses[orig]
		if pos != orig {
			changed = true
		}
	}
	copy(clauses, reordered)
	return changed
}

// addSourceProjection adds the default field projection when the caller
// requested none.
func addSourceProjection(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	fields := make([]any, len(defaultSourceFields))
	copy(fields, defaultSourceFields)
	out["_source"] = fields
	return out, []string{"added default source projection"}
}

// clampHighlights bounds fragment size and count on every highlight node,
// including per-field overrides.
func clampHighlights(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	var notes []string

	clamp := func(node query.Tree, scope string) {
		if v, ok := node.Int("fragment_size"); ok && v > maxFragmentSize {
			node["fragment_size"] = maxFragmentSize
			notes = append(notes, fmt.Sprintf("clamped %s highlight fragment_size to %d", scope, maxFragmentSize))
		}
		if v, ok := node.Int("number_of_fragments"); ok && v > maxFragments {
			node["number_of_fragments"] = maxFragments
			notes = append(notes, fmt.Sprintf("clamped %s highlight fragments to %d", scope, maxFragments))
		}
	}

	out.Walk(func(node query.Tree) {
		hl, ok := node.Sub("highlight")
		if !ok {
			return
		}
		clamp(hl, "global")
		if fields, ok := hl.Sub("fields"); ok {
			for name, fv := range fields {
				if fieldHL, ok := query.AsTree(fv); ok {
					clamp(fieldHL, name)
				}
			}
		}
	})
	return out, notes
}

// clampAggregationSizes bounds terms aggregation sizes and fills the default
// where absent.
func clampAggregationSizes(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	var notes []string

	out.Walk(func(node query.Tree) {
		for _, key := range []string{"aggs", "aggregations"} {
			aggs, ok := node.Sub(key)
			if !ok {
				continue
			}
			for name, av := range aggs {
				agg, ok := query.AsTree(av)
				if !ok {
					continue
				}
				terms, ok := agg.Sub("terms")
				if !ok {
					continue
				}
				size, present := terms.Int("size")
				switch {
				case !present:
					terms["size"] = defaultAggSize
					notes = append(notes, fmt.Sprintf("defaulted terms size on aggregation %q to %d", name, defaultAggSize))
				case size > maxAggTermsSize:
					terms["size"] = maxAggTermsSize
					notes = append(notes, fmt.Sprintf("clamped terms size on aggregation %q to %d", name, maxAggTermsSize))
				}
			}
		}
	})
	return out, notes
}

// clampSort trims the sort clause list to the supported maximum.
func clampSort(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	clauses, ok := out["sort"].([]any)
	if !ok || len(clauses) <= maxSortClauses {
		return out, nil
	}
	out["sort"] = clauses[:maxSortClauses]
	return out, []string{fmt.Sprintf("trimmed sort clauses to %d", maxSortClauses)}
}

// clampResultWindow defaults a missing size and bounds oversized windows.
func clampResultWindow(tree query.Tree) (query.Tree, []string) {
	out := tree.Clone()
	size, present := out.Int("size")
	switch {
	case !present:
		out["size"] = defaultSize
		return out, []string{fmt.Sprintf("defaulted result size to %d", defaultSize)}
	case size > maxSize:
		out["size"] = maxSize
		return out, []string{fmt.Sprintf("clamped result size to %d", maxSize)}
	}
	return out, nil
}
