package claimsearch

import (
	"context"

	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// CreateModel stores a new scoring model. An empty spec ID gets a generated
// one; the first model ever created becomes active.
func (c *Client) CreateModel(ctx context.Context, spec ModelSpec) (Model, error) {
	functions, err := functionsToDomain(spec.Functions)
	if err != nil {
		return Model{}, err
	}
	m, err := c.relevance.CreateModel(ctx, spec.ID, spec.Name, weightsToDomain(spec.Weights), functions)
	if err != nil {
		return Model{}, err
	}
	return modelFromDomain(&m), nil
}

// UpdateModel replaces the model's weights and functions and bumps its
// version.
func (c *Client) UpdateModel(ctx context.Context, spec ModelSpec) (Model, error) {
	functions, err := functionsToDomain(spec.Functions)
	if err != nil {
		return Model{}, err
	}
	m, err := c.relevance.UpdateModel(ctx, spec.ID, spec.Name, weightsToDomain(spec.Weights), functions)
	if err != nil {
		return Model{}, err
	}
	return modelFromDomain(&m), nil
}

// GetModel loads one model by id.
func (c *Client) GetModel(ctx context.Context, id string) (Model, error) {
	m, err := c.relevance.GetModel(ctx, id)
	if err != nil {
		return Model{}, err
	}
	return modelFromDomain(&m), nil
}

// ListModels loads all stored models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	models, err := c.relevance.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Model, len(models))
	for i := range models {
		out[i] = modelFromDomain(&models[i])
	}
	return out, nil
}

// DeleteModel removes a model. Deleting the active model fails with
// ErrActiveModelDelete.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	return c.relevance.DeleteModel(ctx, id)
}

// ActivateModel makes one model active, deactivating the prior one.
func (c *Client) ActivateModel(ctx context.Context, id string) error {
	return c.relevance.SetActiveModel(ctx, id)
}

// ActiveModel returns the currently active model.
func (c *Client) ActiveModel(ctx context.Context) (Model, error) {
	m, err := c.relevance.ActiveModel(ctx)
	if err != nil {
		return Model{}, err
	}
	return modelFromDomain(&m), nil
}

// EvaluateModel runs offline evaluation over judged test cases and stores
// the aggregate metrics on the model. Without explicit caseIDs every stored
// test case is used.
func (c *Client) EvaluateModel(ctx context.Context, modelID string, caseIDs ...string) (Performance, error) {
	perf, err := c.relevance.EvaluateModel(ctx, modelID, caseIDs)
	if err != nil {
		return Performance{}, err
	}
	return performanceFromDomain(perf), nil
}

// SaveTestCase stores a judged query test case.
func (c *Client) SaveTestCase(ctx context.Context, tc TestCase) error {
	expected := make([]scoring.ExpectedResult, len(tc.Expected))
	for i, e := range tc.Expected {
		expected[i] = scoring.ExpectedResult{
			DocumentID:    e.DocumentID,
			ExpectedRank:  e.ExpectedRank,
			ExpectedScore: e.ExpectedScore,
		}
	}
	domTC, err := scoring.NewTestCase(tc.QueryID, tc.QueryText, expected)
	if err != nil {
		return err
	}
	return c.testCases.Save(ctx, &domTC)
}

// AddJudgment appends one graded relevance label (0-3) to a test case.
func (c *Client) AddJudgment(ctx context.Context, queryID, documentID string, grade int, annotatorID string) error {
	j, err := scoring.NewJudgment(queryID, documentID, grade, annotatorID)
	if err != nil {
		return err
	}
	return c.testCases.AppendJudgment(ctx, j)
}
