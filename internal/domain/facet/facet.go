// Package facet defines facet configurations, filters, and parsed results
// for multi-select faceted search.
package facet

import (
	"fmt"

	"github.com/truongngoctrac/claims-search/internal/domain"
)

// Type identifies the aggregation kind backing a facet.
type Type string

// Supported facet types.
const (
	Terms         Type = "terms"
	Range         Type = "range"
	DateHistogram Type = "date_histogram"
	Nested        Type = "nested"
	GeoDistance   Type = "geo_distance"
)

// Order controls bucket ordering for terms facets.
type Order string

// Bucket orderings.
const (
	OrderCountDesc Order = "count_desc"
	OrderCountAsc  Order = "count_asc"
	OrderKeyAsc    Order = "key_asc"
	OrderKeyDesc   Order = "key_desc"
)

// DefaultTermsSize is the terms bucket count used when none is configured.
const DefaultTermsSize = 50

// MaxTermsSize caps the terms bucket count per facet.
const MaxTermsSize = 100

// Bound is one explicit bucket boundary for range and geo_distance facets.
type Bound struct {
	Key  string
	From *float64
	To   *float64
}

// TermsParams holds terms-specific parameters.
type TermsParams struct {
	MinDocCount int
	Include     []string
	Exclude     []string
}

// DateHistogramParams holds date_histogram-specific parameters.
type DateHistogramParams struct {
	Interval string
	Format   string
	TimeZone string
}

// NestedParams holds nested-specific parameters. SubField is the inner
// terms field relative to the nested path.
type NestedParams struct {
	Path     string
	SubField string
}

// GeoParams holds geo_distance-specific parameters.
type GeoParams struct {
	Lat    float64
	Lon    float64
	Unit   string
	Ranges []Bound
}

// Config is a validated facet definition. Exactly one of the variant params
// matching Type is set.
type Config struct {
	field string
	typ   Type
	size  int
	order Order

	terms    *TermsParams
	ranges   []Bound
	dateHist *DateHistogramParams
	nested   *NestedParams
	geo      *GeoParams
}

// NewTerms builds a terms facet. Size is clamped to [1, MaxTermsSize] with
// DefaultTermsSize when unset.
func NewTerms(field string, size int, order Order, params *TermsParams) (Config, error) {
	if field == "" {
		return Config{}, fmt.Errorf("%w: facet field is required", domain.ErrValidation)
	}
	return Config{field: field, typ: Terms, size: clampSize(size), order: defaultOrder(order), terms: params}, nil
}

// NewRange builds a range facet over explicit boundaries.
func NewRange(field string, ranges []Bound) (Config, error) {
	if field == "" {
		return Config{}, fmt.Errorf("%w: facet field is required", domain.ErrValidation)
	}
	if len(ranges) == 0 {
		return Config{}, fmt.Errorf("%w: range facet %q needs at least one boundary", domain.ErrValidation, field)
	}
	for _, r := range ranges {
		if r.From == nil && r.To == nil {
			return Config{}, fmt.Errorf("%w: range facet %q has an unbounded bucket", domain.ErrValidation, field)
		}
	}
	return Config{field: field, typ: Range, ranges: ranges}, nil
}

// NewDateHistogram builds a date_histogram facet.
func NewDateHistogram(field string, params DateHistogramParams) (Config, error) {
	if field == "" {
		return Config{}, fmt.Errorf("%w: facet field is required", domain.ErrValidation)
	}
	if params.Interval == "" {
		return Config{}, fmt.Errorf("%w: date_histogram facet %q requires an interval", domain.ErrValidation, field)
	}
	return Config{field: field, typ: DateHistogram, dateHist: &params}, nil
}

// NewNested builds a nested facet: a terms aggregation under a nested path.
func NewNested(field string, size int, params NestedParams) (Config, error) {
	if field == "" {
		return Config{}, fmt.Errorf("%w: facet field is required", domain.ErrValidation)
	}
	if params.Path == "" || params.SubField == "" {
		return Config{}, fmt.Errorf("%w: nested facet %q requires path and sub-field", domain.ErrValidation, field)
	}
	return Config{field: field, typ: Nested, size: clampSize(size), nested: &params}, nil
}

// NewGeoDistance builds a geo_distance facet around an origin point.
func NewGeoDistance(field string, params GeoParams) (Config, error) {
	if field == "" {
		return Config{}, fmt.Errorf("%w: facet field is required", domain.ErrValidation)
	}
	if len(params.Ranges) == 0 {
		return Config{}, fmt.Errorf("%w: geo_distance facet %q needs at least one ring", domain.ErrValidation, field)
	}
	if params.Unit == "" {
		params.Unit = "km"
	}
	return Config{field: field, typ: GeoDistance, geo: &params}, nil
}

// Field returns the facet field.
func (c *Config) Field() string { return c.field }

// FacetType returns the aggregation kind.
func (c *Config) FacetType() Type { return c.typ }

// Size returns the clamped bucket count (terms and nested only).
func (c *Config) Size() int { return c.size }

// Ordering returns the bucket order (terms only).
func (c *Config) Ordering() Order { return c.order }

// TermsParams returns terms parameters, nil for other types.
func (c *Config) TermsParams() *TermsParams { return c.terms }

// Ranges returns the explicit boundaries (range type).
func (c *Config) Ranges() []Bound { return c.ranges }

// DateHistogramParams returns date_histogram parameters, nil for other types.
func (c *Config) DateHistogramParams() *DateHistogramParams { return c.dateHist }

// NestedParams returns nested parameters, nil for other types.
func (c *Config) NestedParams() *NestedParams { return c.nested }

// GeoParams returns geo parameters, nil for other types.
func (c *Config) GeoParams() *GeoParams { return c.geo }

// WithSize returns a copy with a different clamped size.
func (c Config) WithSize(size int) Config {
	c.size = clampSize(size)
	return c
}

// WithInclude returns a copy with a replaced terms include list.
func (c Config) WithInclude(include []string) Config {
	params := TermsParams{}
	if c.terms != nil {
		params = *c.terms
	}
	params.Include = include
	c.terms = &params
	return c
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultTermsSize
	}
	if size > MaxTermsSize {
		return MaxTermsSize
	}
	return size
}

func defaultOrder(o Order) Order {
	if o == "" {
		return OrderCountDesc
	}
	return o
}

// Combinator joins multiple selected values of one facet filter.
type Combinator string

// Filter value combinators.
const (
	CombinatorOr  Combinator = "or"
	CombinatorAnd Combinator = "and"
)

// Filter is an active facet selection.
type Filter struct {
	Field      string
	Values     []string
	Range      *Bound
	Combinator Combinator
}

// IsEmpty reports whether the filter carries no constraint.
func (f Filter) IsEmpty() bool {
	return len(f.Values) == 0 && f.Range == nil
}

// ResultBucket is one value bucket of a parsed facet.
type ResultBucket struct {
	Key      string
	DocCount int64
	From     *float64
	To       *float64
}

// Result is the uniform parsed form of one facet, independent of type.
type Result struct {
	Field                 string
	FacetType             Type
	Buckets               []ResultBucket
	CardinalityErrorBound int64
}
