// Package facets builds sibling-filtered aggregation requests for
// multi-select faceting and parses their responses back into a uniform
// shape.
//
// Sibling independence: each facet's aggregation is scoped by every active
// filter except its own, so selecting a value inside a facet never narrows
// that facet's own bucket counts.
package facets

import (
	"fmt"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/facet"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// innerAggKey names the wrapped aggregation under filter and nested layers.
const innerAggKey = "facet"

// Planner builds and parses facet aggregations.
type Planner struct{}

// NewPlanner creates a facet planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// BuildAggregations returns one aggregation per facet config, each scoped by
// the sibling filters only.
func (p *Planner) BuildAggregations(configs []facet.Config, active []facet.Filter) (query.Tree, error) {
	aggs := make(query.Tree, len(configs))
	for i := range configs {
		cfg := &configs[i]
		agg, err := p.buildOne(cfg, siblingFilters(cfg.Field(), active))
		if err != nil {
			return nil, err
		}
		aggs[cfg.Field()] = agg
	}
	return aggs, nil
}

// PostFilter combines every active filter into one bool clause for the hits
// section. Facet counts stay sibling-filtered; the hit list reflects all
// selections.
func (p *Planner) PostFilter(active []facet.Filter) query.Tree {
	clauses := filterClauses(active)
	if len(clauses) == 0 {
		return nil
	}
	return query.Tree{"bool": query.Tree{"filter": clauses}}
}

// buildOne renders one facet aggregation, wrapping it in a sibling filter
// layer when other facets have active selections.
func (p *Planner) buildOne(cfg *facet.Config, siblings []facet.Filter) (query.Tree, error) {
	base, err := baseAggregation(cfg)
	if err != nil {
		return nil, err
	}

	clauses := filterClauses(siblings)
	if len(clauses) == 0 {
		return base, nil
	}
	return query.Tree{
		"filter": query.Tree{"bool": query.Tree{"filter": clauses}},
		"aggs":   query.Tree{innerAggKey: base},
	}, nil
}

func baseAggregation(cfg *facet.Config) (query.Tree, error) {
	switch cfg.FacetType() {
	case facet.Terms:
		return termsAggregation(cfg), nil
	case facet.Range:
		return query.Tree{
			"range": query.Tree{
				"field":  cfg.Field(),
				"ranges": boundsToTree(cfg.Ranges()),
			},
		}, nil
	case facet.DateHistogram:
		params := cfg.DateHistogramParams()
		body := query.Tree{
			"field":             cfg.Field(),
			"calendar_interval": params.Interval,
		}
		if params.Format != "" {
			body["format"] = params.Format
		}
		if params.TimeZone != "" {
			body["time_zone"] = params.TimeZone
		}
		return query.Tree{"date_histogram": body}, nil
	case facet.Nested:
		params := cfg.NestedParams()
		return query.Tree{
			"nested": query.Tree{"path": params.Path},
			"aggs": query.Tree{
				innerAggKey: query.Tree{
					"terms": query.Tree{
						"field": params.Path + "." + params.SubField,
						"size":  cfg.Size(),
					},
				},
			},
		}, nil
	case facet.GeoDistance:
		params := cfg.GeoParams()
		return query.Tree{
			"geo_distance": query.Tree{
				"field":  cfg.Field(),
				"origin": query.Tree{"lat": params.Lat, "lon": params.Lon},
				"unit":   params.Unit,
				"ranges": boundsToTree(params.Ranges),
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFacetType, cfg.FacetType())
	}
}

func termsAggregation(cfg *facet.Config) query.Tree {
	body := query.Tree{
		"field": cfg.Field(),
		"size":  cfg.Size(),
	}
	switch cfg.Ordering() {
	case facet.OrderCountAsc:
		body["order"] = query.Tree{"_count": "asc"}
	case facet.OrderKeyAsc:
		body["order"] = query.Tree{"_key": "asc"}
	case facet.OrderKeyDesc:
		body["order"] = query.Tree{"_key": "desc"}
	default: // count_desc is the backend default
	}
	if params := cfg.TermsParams(); params != nil {
		if params.MinDocCount > 0 {
			body["min_doc_count"] = params.MinDocCount
		}
		if len(params.Include) > 0 {
			body["include"] = toAnySlice(params.Include)
		}
		if len(params.Exclude) > 0 {
			body["exclude"] = toAnySlice(params.Exclude)
		}
	}
	return query.Tree{"terms": body}
}

// siblingFilters drops the facet's own filter, keeping everyone else's.
func siblingFilters(field string, active []facet.Filter) []facet.Filter {
	out := make([]facet.Filter, 0, len(active))
	for _, f := range active {
		if f.Field != field && !f.IsEmpty() {
			out = append(out, f)
		}
	}
	return out
}

// filterClauses renders active filters as backend filter clauses.
func filterClauses(filters []facet.Filter) []any {
	var clauses []any
	for _, f := range filters {
		if clause := filterClause(f); clause != nil {
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

func filterClause(f facet.Filter) any {
	if f.Range != nil {
		body := query.Tree{}
		if f.Range.From != nil {
			body["gte"] = *f.Range.From
		}
		if f.Range.To != nil {
			body["lt"] = *f.Range.To
		}
		return query.Tree{"range": query.Tree{f.Field: body}}
	}

	switch {
	case len(f.Values) == 0:
		return nil
	case f.Combinator == facet.CombinatorAnd:
		must := make([]any, len(f.Values))
		for i, v := range f.Values {
			must[i] = query.Tree{"term": query.Tree{f.Field: v}}
		}
		return query.Tree{"bool": query.Tree{"filter": must}}
	default: // or
		return query.Tree{"terms": query.Tree{f.Field: toAnySlice(f.Values)}}
	}
}

func boundsToTree(bounds []facet.Bound) []any {
	out := make([]any, len(bounds))
	for i, b := range bounds {
		r := query.Tree{}
		if b.Key != "" {
			r["key"] = b.Key
		}
		if b.From != nil {
			r["from"] = *b.From
		}
		if b.To != nil {
			r["to"] = *b.To
		}
		out[i] = r
	}
	return out
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
