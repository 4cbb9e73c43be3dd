// Package relevance manages versioned scoring models, applies them to query
// trees, and evaluates them offline against judged test cases.
package relevance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// defaultSearchFields are the claim document fields evaluation queries match
// against when a test case carries plain query text.
var defaultSearchFields = []any{
	"claim_number", "diagnosis", "treatment", "patient_name",
	"provider_name", "facility_name", "notes",
}

// evalPoolSize bounds concurrent test case evaluations per call.
const evalPoolSize = 8

// Service handles scoring model lifecycle, query transformation, and
// offline evaluation.
type Service struct {
	models       ModelStore
	cases        TestCaseStore
	searcher     HitSearcher
	searchFields []any
	logger       *zap.Logger

	// activation guards the single-active invariant across concurrent calls.
	activation sync.Mutex
}

// New creates a relevance service. searchFields are the document fields
// evaluation queries match against; empty falls back to the claim defaults.
func New(models ModelStore, cases TestCaseStore, searcher HitSearcher, searchFields []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := defaultSearchFields
	if len(searchFields) > 0 {
		fields = make([]any, len(searchFields))
		for i, f := range searchFields {
			fields[i] = f
		}
	}
	return &Service{models: models, cases: cases, searcher: searcher, searchFields: fields, logger: logger}
}

// CreateModel validates and stores a new model. An empty id gets generated.
// The first model ever created becomes active so the invariant that exactly
// one model is active holds from the start.
func (s *Service) CreateModel(
	ctx context.Context, id, name string,
	weights []scoring.FieldWeight, functions []scoring.Function,
) (scoring.Model, error) {
	if id == "" {
		id = uuid.NewString()
	}

	if _, err := s.models.Get(ctx, id); err == nil {
		return scoring.Model{}, fmt.Errorf("model %s: %w", id, domain.ErrModelExists)
	}

	m, err := scoring.NewModel(id, name, weights, functions)
	if err != nil {
		return scoring.Model{}, err
	}

	s.activation.Lock()
	defer s.activation.Unlock()

	existing, err := s.models.List(ctx)
	if err != nil {
		return scoring.Model{}, fmt.Errorf("list models: %w", err)
	}
	if len(existing) == 0 {
		m.SetActive(true)
	}

	if err := s.models.Save(ctx, &m); err != nil {
		return scoring.Model{}, err
	}
	s.logger.Info("scoring model created",
		zap.String("model_id", m.ID()),
		zap.Bool("active", m.IsActive()),
	)
	return m, nil
}

// UpdateModel replaces weights and functions in place and bumps the version.
func (s *Service) UpdateModel(
	ctx context.Context, id, name string,
	weights []scoring.FieldWeight, functions []scoring.Function,
) (scoring.Model, error) {
	m, err := s.models.Get(ctx, id)
	if err != nil {
		return scoring.Model{}, err
	}
	if err := m.Update(name, weights, functions); err != nil {
		return scoring.Model{}, err
	}
	if err := s.models.Save(ctx, &m); err != nil {
		return scoring.Model{}, err
	}
	return m, nil
}

// GetModel loads one model.
func (s *Service) GetModel(ctx context.Context, id string) (scoring.Model, error) {
	return s.models.Get(ctx, id)
}

// ListModels loads all models.
func (s *Service) ListModels(ctx context.Context) ([]scoring.Model, error) {
	return s.models.List(ctx)
}

// DeleteModel removes a model. The active model cannot be deleted.
func (s *Service) DeleteModel(ctx context.Context, id string) error {
	m, err := s.models.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.IsActive() {
		return fmt.Errorf("model %s: %w", id, domain.ErrActiveModelDelete)
	}
	return s.models.Delete(ctx, id)
}

// SetActiveModel activates one model, deactivating the prior active model.
// The swap is atomic with respect to other activation calls on this node.
func (s *Service) SetActiveModel(ctx context.Context, id string) error {
	s.activation.Lock()
	defer s.activation.Unlock()

	target, err := s.models.Get(ctx, id)
	if err != nil {
		return err
	}
	if target.IsActive() {
		return nil
	}

	models, err := s.models.List(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for i := range models {
		if models[i].IsActive() {
			models[i].SetActive(false)
			if err := s.models.Save(ctx, &models[i]); err != nil {
				return fmt.Errorf("deactivate model %s: %w", models[i].ID(), err)
			}
		}
	}

	target.SetActive(true)
	if err := s.models.Save(ctx, &target); err != nil {
		return fmt.Errorf("activate model %s: %w", id, err)
	}
	s.logger.Info("scoring model activated", zap.String("model_id", id))
	return nil
}

// ActiveModel returns the currently active model.
func (s *Service) ActiveModel(ctx context.Context) (scoring.Model, error) {
	models, err := s.models.List(ctx)
	if err != nil {
		return scoring.Model{}, fmt.Errorf("list models: %w", err)
	}
	for _, m := range models {
		if m.IsActive() {
			return m, nil
		}
	}
	return scoring.Model{}, domain.ErrNoActiveModel
}

// ApplyScoring transforms a request body through a model. An empty modelID
// selects the active model.
func (s *Service) ApplyScoring(ctx context.Context, body query.Tree, modelID string) (query.Tree, error) {
	var (
		m   scoring.Model
		err error
	)
	if modelID == "" {
		m, err = s.ActiveModel(ctx)
	} else {
		m, err = s.models.Get(ctx, modelID)
	}
	if err != nil {
		return nil, err
	}
	return applyModel(body, &m), nil
}

// EvaluateModel runs each test case's query through the model against the
// live index and stores the averaged performance snapshot on the model.
// Nil caseIDs evaluates every stored test case. Erroring cases are skipped
// and logged, never aborting the batch.
func (s *Service) EvaluateModel(ctx context.Context, modelID string, caseIDs []string) (scoring.Performance, error) {
	m, err := s.models.Get(ctx, modelID)
	if err != nil {
		return scoring.Performance{}, err
	}

	if len(caseIDs) == 0 {
		caseIDs, err = s.cases.List(ctx)
		if err != nil {
			return scoring.Performance{}, fmt.Errorf("list test cases: %w", err)
		}
	}
	if len(caseIDs) == 0 {
		return scoring.Performance{}, fmt.Errorf("%w: no test cases to evaluate", domain.ErrData)
	}

	pool, err := ants.NewPool(evalPoolSize)
	if err != nil {
		return scoring.Performance{}, fmt.Errorf("create eval pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []caseMetrics
		skipped int
	)

	for _, caseID := range caseIDs {
		caseID := caseID
		wg.Add(1)
		submit := pool.Submit(func() {
			defer wg.Done()
			metrics, err := s.evaluateCase(ctx, &m, caseID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped++
				s.logger.Warn("test case evaluation skipped",
					zap.String("model_id", modelID),
					zap.String("query_id", caseID),
					zap.Error(err),
				)
				return
			}
			results = append(results, metrics)
		})
		if submit != nil {
			wg.Done()
			mu.Lock()
			skipped++
			mu.Unlock()
		}
	}
	wg.Wait()

	perf := aggregate(results, skipped)
	perf.EvaluatedAt = time.Now().UTC()

	m.SetPerformance(perf)
	if err := s.models.Save(ctx, &m); err != nil {
		return scoring.Performance{}, fmt.Errorf("store performance snapshot: %w", err)
	}

	s.logger.Info("model evaluated",
		zap.String("model_id", modelID),
		zap.Int("cases", perf.TestCases),
		zap.Int("skipped", perf.Skipped),
		zap.Float64("ndcg", perf.NDCG),
		zap.Float64("mrr", perf.MRR),
	)
	return perf, nil
}

// evaluateCase runs one judged query and scores the ranked result.
func (s *Service) evaluateCase(ctx context.Context, m *scoring.Model, caseID string) (caseMetrics, error) {
	tc, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return caseMetrics{}, err
	}
	if len(tc.Expected) == 0 {
		return caseMetrics{}, fmt.Errorf("%w: test case %s has no expected results", domain.ErrData, caseID)
	}

	body := applyModel(query.Tree{
		"query": query.Tree{
			"multi_match": query.Tree{
				"query":  tc.QueryText,
				"fields": append([]any{}, s.searchFields...),
			},
		},
	}, m)

	size := evalCutoff
	if len(tc.Expected) > size {
		size = len(tc.Expected)
	}

	ranked, err := s.searcher.SearchIDs(ctx, body, size)
	if err != nil {
		return caseMetrics{}, err
	}
	return computeCaseMetrics(ranked, tc.ExpectedIDs()), nil
}
