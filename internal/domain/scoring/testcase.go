package scoring

import (
	"fmt"
	"time"

	"github.com/truongngoctrac/claims-search/internal/domain"
)

// Judgment is one append-only graded relevance label.
type Judgment struct {
	QueryID     string
	DocumentID  string
	Grade       int // 0 (irrelevant) .. 3 (perfect)
	AnnotatorID string
	JudgedAt    time.Time
}

// NewJudgment validates and builds a relevance judgment.
func NewJudgment(queryID, documentID string, grade int, annotatorID string) (Judgment, error) {
	if queryID == "" || documentID == "" {
		return Judgment{}, fmt.Errorf("%w: judgment requires query id and document id", domain.ErrValidation)
	}
	if grade < 0 || grade > 3 {
		return Judgment{}, fmt.Errorf("%w: judgment grade must be 0-3, got %d", domain.ErrValidation, grade)
	}
	return Judgment{
		QueryID:     queryID,
		DocumentID:  documentID,
		Grade:       grade,
		AnnotatorID: annotatorID,
		JudgedAt:    time.Now().UTC(),
	}, nil
}

// ExpectedResult is one expected hit of a test case.
type ExpectedResult struct {
	DocumentID    string
	ExpectedRank  int
	ExpectedScore float64
}

// TestCase is a judged query used only for offline model evaluation.
type TestCase struct {
	QueryID   string
	QueryText string
	Expected  []ExpectedResult
}

// NewTestCase validates and builds a query test case.
func NewTestCase(queryID, queryText string, expected []ExpectedResult) (TestCase, error) {
	if queryID == "" {
		return TestCase{}, fmt.Errorf("%w: test case query id is required", domain.ErrValidation)
	}
	if queryText == "" {
		return TestCase{}, fmt.Errorf("%w: test case query text is required", domain.ErrValidation)
	}
	if len(expected) == 0 {
		return TestCase{}, fmt.Errorf("%w: test case needs at least one expected result", domain.ErrValidation)
	}
	for _, e := range expected {
		if e.DocumentID == "" {
			return TestCase{}, fmt.Errorf("%w: expected result with empty document id", domain.ErrValidation)
		}
	}
	return TestCase{QueryID: queryID, QueryText: queryText, Expected: expected}, nil
}

// ExpectedIDs returns the expected document ids in expected-rank order.
func (tc *TestCase) ExpectedIDs() []string {
	ids := make([]string, len(tc.Expected))
	for i, e := range tc.Expected {
		ids[i] = e.DocumentID
	}
	return ids
}
