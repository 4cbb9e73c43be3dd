package scoring

import "time"

// Performance is an offline evaluation snapshot averaged across test cases.
type Performance struct {
	Precision   float64
	Recall      float64
	F1          float64
	NDCG        float64
	MRR         float64
	TestCases   int
	Skipped     int
	EvaluatedAt time.Time
}

// F1Score combines precision and recall, 0 when both are 0.
func F1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
