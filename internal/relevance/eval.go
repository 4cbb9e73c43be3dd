package relevance

import (
	"math"

	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
)

// evalCutoff is the rank cutoff for precision and NDCG.
const evalCutoff = 10

// caseMetrics holds per-test-case ranking quality numbers.
type caseMetrics struct {
	precision float64
	recall    float64
	ndcg      float64
	mrr       float64
}

// computeCaseMetrics scores one ranked id list against the expected set.
// Relevance is binary: a document is relevant iff it appears in expected.
func computeCaseMetrics(ranked, expected []string) caseMetrics {
	relevant := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		relevant[id] = struct{}{}
	}

	cutoff := evalCutoff
	if len(ranked) < cutoff {
		cutoff = len(ranked)
	}

	hitsAtCutoff := 0
	for _, id := range ranked[:cutoff] {
		if _, ok := relevant[id]; ok {
			hitsAtCutoff++
		}
	}

	hitsTotal := 0
	for _, id := range ranked {
		if _, ok := relevant[id]; ok {
			hitsTotal++
		}
	}

	var recall float64
	if len(expected) > 0 {
		recall = float64(hitsTotal) / float64(len(expected))
	}

	return caseMetrics{
		precision: float64(hitsAtCutoff) / float64(evalCutoff),
		recall:    recall,
		ndcg:      ndcgAt(ranked, relevant, evalCutoff),
		mrr:       reciprocalRank(ranked, relevant),
	}
}

// ndcgAt computes NDCG with binary gains at the given cutoff.
func ndcgAt(ranked []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}

	var dcg float64
	for i, id := range ranked {
		if i >= k {
			break
		}
		if _, ok := relevant[id]; ok {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}

	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}
	var idcg float64
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// reciprocalRank returns 1/rank of the first relevant hit, 0 when absent.
func reciprocalRank(ranked []string, relevant map[string]struct{}) float64 {
	for i, id := range ranked {
		if _, ok := relevant[id]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// aggregate averages case metrics arithmetically and derives F1.
func aggregate(cases []caseMetrics, skipped int) scoring.Performance {
	perf := scoring.Performance{TestCases: len(cases), Skipped: skipped}
	if len(cases) == 0 {
		return perf
	}

	for _, c := range cases {
		perf.Precision += c.precision
		perf.Recall += c.recall
		perf.NDCG += c.ndcg
		perf.MRR += c.mrr
	}
	n := float64(len(cases))
	perf.Precision /= n
	perf.Recall /= n
	perf.NDCG /= n
	perf.MRR /= n
	perf.F1 = scoring.F1Score(perf.Precision, perf.Recall)
	return perf
}
