// Package testcase persists query test cases and append-only relevance
// judgments in the document store.
package testcase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
	"github.com/truongngoctrac/claims-search/internal/store"
)

const (
	indexKey        = "search:testcases"
	casePrefix      = "search:testcase:"
	judgmentsPrefix = "search:judgments:"
)

type docStore interface {
	store.Hash
	store.Set
	store.List
}

// Repo stores test cases as hashes and judgments as append-only lists.
type Repo struct {
	store docStore
}

// New creates a test case repository.
func New(s docStore) *Repo {
	return &Repo{store: s}
}

type expectedDTO struct {
	DocumentID    string  `json:"document_id"`
	ExpectedRank  int     `json:"expected_rank"`
	ExpectedScore float64 `json:"expected_score"`
}

type judgmentDTO struct {
	QueryID     string    `json:"query_id"`
	DocumentID  string    `json:"document_id"`
	Grade       int       `json:"grade"`
	AnnotatorID string    `json:"annotator_id"`
	JudgedAt    time.Time `json:"judged_at"`
}

// Save upserts a test case.
func (r *Repo) Save(ctx context.Context, tc *scoring.TestCase) error {
	expected := make([]expectedDTO, len(tc.Expected))
	for i, e := range tc.Expected {
		expected[i] = expectedDTO{DocumentID: e.DocumentID, ExpectedRank: e.ExpectedRank, ExpectedScore: e.ExpectedScore}
	}
	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		return fmt.Errorf("encode test case %s: %w", tc.QueryID, err)
	}

	fields := map[string]string{
		"query_id":   tc.QueryID,
		"query_text": tc.QueryText,
		"expected":   string(expectedJSON),
	}
	if err := r.store.HSet(ctx, casePrefix+tc.QueryID, fields); err != nil {
		return fmt.Errorf("save test case %s: %w", tc.QueryID, err)
	}
	if err := r.store.SAdd(ctx, indexKey, tc.QueryID); err != nil {
		return fmt.Errorf("index test case %s: %w", tc.QueryID, err)
	}
	return nil
}

// Get loads a test case by query id.
func (r *Repo) Get(ctx context.Context, queryID string) (scoring.TestCase, error) {
	fields, err := r.store.HGetAll(ctx, casePrefix+queryID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return scoring.TestCase{}, fmt.Errorf("test case %s: %w", queryID, domain.ErrTestCaseNotFound)
		}
		return scoring.TestCase{}, fmt.Errorf("load test case %s: %w", queryID, err)
	}

	var expectedDTOs []expectedDTO
	if err := json.Unmarshal([]byte(fields["expected"]), &expectedDTOs); err != nil {
		return scoring.TestCase{}, fmt.Errorf("decode test case %s: %w", queryID, err)
	}
	expected := make([]scoring.ExpectedResult, len(expectedDTOs))
	for i, e := range expectedDTOs {
		expected[i] = scoring.ExpectedResult{DocumentID: e.DocumentID, ExpectedRank: e.ExpectedRank, ExpectedScore: e.ExpectedScore}
	}

	return scoring.TestCase{
		QueryID:   fields["query_id"],
		QueryText: fields["query_text"],
		Expected:  expected,
	}, nil
}

// List loads every stored test case id.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	ids, err := r.store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	return ids, nil
}

// AppendJudgment appends one relevance judgment. Judgments are never
// rewritten or deleted.
func (r *Repo) AppendJudgment(ctx context.Context, j scoring.Judgment) error {
	raw, err := json.Marshal(judgmentDTO{
		QueryID: j.QueryID, DocumentID: j.DocumentID,
		Grade: j.Grade, AnnotatorID: j.AnnotatorID, JudgedAt: j.JudgedAt,
	})
	if err != nil {
		return fmt.Errorf("encode judgment: %w", err)
	}
	if err := r.store.RPush(ctx, judgmentsPrefix+j.QueryID, string(raw)); err != nil {
		return fmt.Errorf("append judgment %s: %w", j.QueryID, err)
	}
	return nil
}

// Judgments loads all judgments for a query.
func (r *Repo) Judgments(ctx context.Context, queryID string) ([]scoring.Judgment, error) {
	raws, err := r.store.LRange(ctx, judgmentsPrefix+queryID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("load judgments %s: %w", queryID, err)
	}

	judgments := make([]scoring.Judgment, 0, len(raws))
	for _, raw := range raws {
		var dto judgmentDTO
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			return nil, fmt.Errorf("decode judgment %s: %w", queryID, err)
		}
		judgments = append(judgments, scoring.Judgment{
			QueryID: dto.QueryID, DocumentID: dto.DocumentID,
			Grade: dto.Grade, AnnotatorID: dto.AnnotatorID, JudgedAt: dto.JudgedAt,
		})
	}
	return judgments, nil
}
