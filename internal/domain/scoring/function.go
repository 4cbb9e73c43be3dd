package scoring

import (
	"fmt"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// Function type identifiers.
const (
	TypeFieldValueFactor = "field_value_factor"
	TypeScriptScore      = "script_score"
	TypeDecay            = "decay"
	TypeRandomScore      = "random_score"
)

// Function is one scoring function of a model. Implementations are the closed
// set of variants below; each validates its required parameters at
// construction and renders its function_score clause.
type Function interface {
	Type() string
	Clause() query.Tree
}

var validModifiers = map[string]struct{}{
	"none": {}, "log": {}, "log1p": {}, "log2p": {},
	"ln": {}, "ln1p": {}, "ln2p": {},
	"square": {}, "sqrt": {}, "reciprocal": {},
}

// FieldValueFactor scores by a numeric document field.
type FieldValueFactor struct {
	Field    string
	Factor   float64
	Modifier string
	Missing  float64
}

// NewFieldValueFactor validates and builds a field_value_factor function.
func NewFieldValueFactor(field string, factor float64, modifier string, missing float64) (FieldValueFactor, error) {
	if field == "" {
		return FieldValueFactor{}, fmt.Errorf("%w: field_value_factor requires field", domain.ErrValidation)
	}
	if factor == 0 {
		return FieldValueFactor{}, fmt.Errorf("%w: field_value_factor requires a non-zero factor", domain.ErrValidation)
	}
	if modifier == "" {
		modifier = "none"
	}
	if _, ok := validModifiers[modifier]; !ok {
		return FieldValueFactor{}, fmt.Errorf("%w: invalid field_value_factor modifier %q", domain.ErrValidation, modifier)
	}
	return FieldValueFactor{Field: field, Factor: factor, Modifier: modifier, Missing: missing}, nil
}

func (f FieldValueFactor) Type() string { return TypeFieldValueFactor }

func (f FieldValueFactor) Clause() query.Tree {
	return query.Tree{
		"field_value_factor": query.Tree{
			"field":    f.Field,
			"factor":   f.Factor,
			"modifier": f.Modifier,
			"missing":  f.Missing,
		},
	}
}

// ScriptScore scores via a backend script.
type ScriptScore struct {
	Source string
	Params map[string]any
}

// NewScriptScore validates and builds a script_score function.
func NewScriptScore(source string, params map[string]any) (ScriptScore, error) {
	if source == "" {
		return ScriptScore{}, fmt.Errorf("%w: script_score requires a script body", domain.ErrValidation)
	}
	if params == nil {
		params = map[string]any{}
	}
	return ScriptScore{Source: source, Params: params}, nil
}

func (f ScriptScore) Type() string { return TypeScriptScore }

func (f ScriptScore) Clause() query.Tree {
	return query.Tree{
		"script_score": query.Tree{
			"script": query.Tree{
				"source": f.Source,
				"params": f.Params,
			},
		},
	}
}

// Decay curve kinds.
const (
	DecayLinear = "linear"
	DecayExp    = "exp"
	DecayGauss  = "gauss"
)

// Decay scores by distance from an origin value (date, number, geo point).
type Decay struct {
	Kind   string
	Field  string
	Origin any
	Scale  string
	Offset string
	Rate   float64
}

// NewDecay validates and builds a decay function.
func NewDecay(kind, field string, origin any, scale, offset string, rate float64) (Decay, error) {
	switch kind {
	case DecayLinear, DecayExp, DecayGauss:
	default:
		return Decay{}, fmt.Errorf("%w: decay function must be linear, exp or gauss, got %q", domain.ErrValidation, kind)
	}
	if field == "" {
		return Decay{}, fmt.Errorf("%w: decay requires field", domain.ErrValidation)
	}
	if origin == nil {
		return Decay{}, fmt.Errorf("%w: decay requires origin", domain.ErrValidation)
	}
	if scale == "" {
		return Decay{}, fmt.Errorf("%w: decay requires scale", domain.ErrValidation)
	}
	if rate <= 0 || rate >= 1 {
		rate = 0.5
	}
	return Decay{Kind: kind, Field: field, Origin: origin, Scale: scale, Offset: offset, Rate: rate}, nil
}

func (f Decay) Type() string { return TypeDecay }

func (f Decay) Clause() query.Tree {
	body := query.Tree{
		"origin": f.Origin,
		"scale":  f.Scale,
		"decay":  f.Rate,
	}
	if f.Offset != "" {
		body["offset"] = f.Offset
	}
	return query.Tree{f.Kind: query.Tree{f.Field: body}}
}

// RandomScore produces reproducible pseudo-random scores from a seed.
type RandomScore struct {
	Seed int64
}

// NewRandomScore validates and builds a random_score function.
func NewRandomScore(seed int64) (RandomScore, error) {
	if seed == 0 {
		return RandomScore{}, fmt.Errorf("%w: random_score requires a non-zero seed", domain.ErrValidation)
	}
	return RandomScore{Seed: seed}, nil
}

func (f RandomScore) Type() string { return TypeRandomScore }

func (f RandomScore) Clause() query.Tree {
	return query.Tree{
		"random_score": query.Tree{
			"seed":  f.Seed,
			"field": "_seq_no",
		},
	}
}
