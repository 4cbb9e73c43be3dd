// Package scoring holds relevance scoring models and their evaluation data.
package scoring

import (
	"fmt"

	"github.com/truongngoctrac/claims-search/internal/domain"
)

// FieldWeight assigns a weight and boost to one searchable field.
type FieldWeight struct {
	Field  string
	Weight float64
	Boost  float64
}

// Model is a named, versioned relevance scoring configuration.
// Exactly one model is active at any time; activation is managed by the
// relevance service, never by the model itself.
type Model struct {
	id          string
	name        string
	version     int
	weights     []FieldWeight
	functions   []Function
	active      bool
	performance *Performance
}

// NewModel validates and builds a scoring model at version 1.
func NewModel(id, name string, weights []FieldWeight, functions []Function) (Model, error) {
	if id == "" {
		return Model{}, fmt.Errorf("%w: model id is required", domain.ErrValidation)
	}
	if name == "" {
		return Model{}, fmt.Errorf("%w: model name is required", domain.ErrValidation)
	}
	if len(weights) == 0 && len(functions) == 0 {
		return Model{}, fmt.Errorf("%w: model needs at least one field weight or scoring function", domain.ErrValidation)
	}
	for _, w := range weights {
		if w.Field == "" {
			return Model{}, fmt.Errorf("%w: field weight with empty field", domain.ErrValidation)
		}
		if w.Weight < 0 {
			return Model{}, fmt.Errorf("%w: negative weight for field %q", domain.ErrValidation, w.Field)
		}
	}
	return Model{id: id, name: name, version: 1, weights: weights, functions: functions}, nil
}

// Reconstruct rebuilds a model from storage without re-validation.
func Reconstruct(
	id, name string, version int,
	weights []FieldWeight, functions []Function,
	active bool, performance *Performance,
) Model {
	return Model{
		id: id, name: name, version: version,
		weights: weights, functions: functions,
		active: active, performance: performance,
	}
}

// ID returns the model id.
func (m *Model) ID() string { return m.id }

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Version returns the model version, incremented on every update.
func (m *Model) Version() int { return m.version }

// Weights returns the ordered field weights.
func (m *Model) Weights() []FieldWeight { return m.weights }

// Functions returns the scoring functions.
func (m *Model) Functions() []Function { return m.functions }

// IsActive reports whether this is the active model.
func (m *Model) IsActive() bool { return m.active }

// Performance returns the last stored evaluation snapshot, nil if never evaluated.
func (m *Model) Performance() *Performance { return m.performance }

// Update replaces weights and functions in place and bumps the version.
// Prior versions are not retained.
func (m *Model) Update(name string, weights []FieldWeight, functions []Function) error {
	if name != "" {
		m.name = name
	}
	if len(weights) == 0 && len(functions) == 0 {
		return fmt.Errorf("%w: model needs at least one field weight or scoring function", domain.ErrValidation)
	}
	m.weights = weights
	m.functions = functions
	m.version++
	return nil
}

// SetActive flips the activation flag.
func (m *Model) SetActive(active bool) { m.active = active }

// SetPerformance overwrites the stored evaluation snapshot.
func (m *Model) SetPerformance(p Performance) { m.performance = &p }
