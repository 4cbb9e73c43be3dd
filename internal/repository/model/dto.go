package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// Hash field names for a persisted scoring model.
const (
	fieldID          = "id"
	fieldName        = "name"
	fieldVersion     = "version"
	fieldWeights     = "weights"
	fieldFunctions   = "functions"
	fieldActive      = "active"
	fieldPerformance = "performance"
)

type weightDTO struct {
	Field  string  `json:"field"`
	Weight float64 `json:"weight"`
	Boost  float64 `json:"boost"`
}

// functionDTO is the tagged persisted form of one scoring function.
type functionDTO struct {
	Type     string         `json:"type"`
	Field    string         `json:"field,omitempty"`
	Factor   float64        `json:"factor,omitempty"`
	Modifier string         `json:"modifier,omitempty"`
	Missing  float64        `json:"missing,omitempty"`
	Source   string         `json:"source,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Origin   any            `json:"origin,omitempty"`
	Scale    string         `json:"scale,omitempty"`
	Offset   string         `json:"offset,omitempty"`
	Rate     float64        `json:"rate,omitempty"`
	Seed     int64          `json:"seed,omitempty"`
}

type performanceDTO struct {
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1"`
	NDCG        float64   `json:"ndcg"`
	MRR         float64   `json:"mrr"`
	TestCases   int       `json:"test_cases"`
	Skipped     int       `json:"skipped"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

func toFields(m *scoring.Model) (map[string]string, error) {
	weights := make([]weightDTO, len(m.Weights()))
	for i, w := range m.Weights() {
		weights[i] = weightDTO{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}
	weightsJSON, err := json.Marshal(weights)
	if err != nil {
		return nil, fmt.Errorf("marshal weights: %w", err)
	}

	functions := make([]functionDTO, len(m.Functions()))
	for i, f := range m.Functions() {
		dto, err := functionToDTO(f)
		if err != nil {
			return nil, err
		}
		functions[i] = dto
	}
	functionsJSON, err := json.Marshal(functions)
	if err != nil {
		return nil, fmt.Errorf("marshal functions: %w", err)
	}

	fields := map[string]string{
		fieldID:        m.ID(),
		fieldName:      m.Name(),
		fieldVersion:   strconv.Itoa(m.Version()),
		fieldWeights:   string(weightsJSON),
		fieldFunctions: string(functionsJSON),
		fieldActive:    boolField(m.IsActive()),
	}

	if p := m.Performance(); p != nil {
		perfJSON, err := json.Marshal(performanceDTO{
			Precision: p.Precision, Recall: p.Recall, F1: p.F1,
			NDCG: p.NDCG, MRR: p.MRR,
			TestCases: p.TestCases, Skipped: p.Skipped, EvaluatedAt: p.EvaluatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal performance: %w", err)
		}
		fields[fieldPerformance] = string(perfJSON)
	}

	return fields, nil
}

func fromFields(fields map[string]string) (scoring.Model, error) {
	version, err := strconv.Atoi(fields[fieldVersion])
	if err != nil {
		return scoring.Model{}, fmt.Errorf("parse version: %w", err)
	}

	var weightDTOs []weightDTO
	if err := json.Unmarshal([]byte(fields[fieldWeights]), &weightDTOs); err != nil {
		return scoring.Model{}, fmt.Errorf("parse weights: %w", err)
	}
	weights := make([]scoring.FieldWeight, len(weightDTOs))
	for i, w := range weightDTOs {
		weights[i] = scoring.FieldWeight{Field: w.Field, Weight: w.Weight, Boost: w.Boost}
	}

	var functionDTOs []functionDTO
	if err := json.Unmarshal([]byte(fields[fieldFunctions]), &functionDTOs); err != nil {
		return scoring.Model{}, fmt.Errorf("parse functions: %w", err)
	}
	functions := make([]scoring.Function, len(functionDTOs))
	for i, dto := range functionDTOs {
		f, err := functionFromDTO(dto)
		if err != nil {
			return scoring.Model{}, err
		}
		functions[i] = f
	}

	var performance *scoring.Performance
	if raw, ok := fields[fieldPerformance]; ok && raw != "" {
		var dto performanceDTO
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			return scoring.Model{}, fmt.Errorf("parse performance: %w", err)
		}
		performance = &scoring.Performance{
			Precision: dto.Precision, Recall: dto.Recall, F1: dto.F1,
			NDCG: dto.NDCG, MRR: dto.MRR,
			TestCases: dto.TestCases, Skipped: dto.Skipped, EvaluatedAt: dto.EvaluatedAt,
		}
	}

	return scoring.Reconstruct(
		fields[fieldID], fields[fieldName], version,
		weights, functions,
		fields[fieldActive] == "1", performance,
	), nil
}

func functionToDTO(f scoring.Function) (functionDTO, error) {
	switch fn := f.(type) {
	case scoring.FieldValueFactor:
		return functionDTO{
			Type: scoring.TypeFieldValueFactor,
			Field: fn.Field, Factor: fn.Factor, Modifier: fn.Modifier, Missing: fn.Missing,
		}, nil
	case scoring.ScriptScore:
		return functionDTO{Type: scoring.TypeScriptScore, Source: fn.Source, Params: fn.Params}, nil
	case scoring.Decay:
		return functionDTO{
			Type: scoring.TypeDecay,
			Kind: fn.Kind, Field: fn.Field, Origin: fn.Origin,
			Scale: fn.Scale, Offset: fn.Offset, Rate: fn.Rate,
		}, nil
	case scoring.RandomScore:
		return functionDTO{Type: scoring.TypeRandomScore, Seed: fn.Seed}, nil
	default:
		return functionDTO{}, fmt.Errorf("unknown scoring function type %T", f)
	}
}

func functionFromDTO(dto functionDTO) (scoring.Function, error) {
	switch dto.Type {
	case scoring.TypeFieldValueFactor:
		return scoring.NewFieldValueFactor(dto.Field, dto.Factor, dto.Modifier, dto.Missing)
	case scoring.TypeScriptScore:
		return scoring.NewScriptScore(dto.Source, dto.Params)
	case scoring.TypeDecay:
		return scoring.NewDecay(dto.Kind, dto.Field, dto.Origin, dto.Scale, dto.Offset, dto.Rate)
	case scoring.TypeRandomScore:
		return scoring.NewRandomScore(dto.Seed)
	default:
		return nil, fmt.Errorf("unknown scoring function type %q", dto.Type)
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
