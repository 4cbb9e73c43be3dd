package optimizer

import "github.com/truongngoctrac/claims-search/internal/domain/query"

// clauseWeights reflect relative backend evaluation cost per clause kind.
var clauseWeights = map[string]float64{
	"wildcard": 10,
	"regexp":   15,
	"range":    3,
	"bool":     2,
	"nested":   8,
	"script":   20,
}

// largeWindow is the result window size above which the window itself
// contributes to complexity.
const largeWindow = 100

// Complexity estimates the evaluation cost of a query tree as a weighted
// clause occurrence count plus a penalty for large result windows.
func Complexity(tree query.Tree) float64 {
	var total float64
	tree.Walk(func(node query.Tree) {
		for key, weight := range clauseWeights {
			if _, ok := node[key]; ok {
				total += weight
			}
		}
	})
	if size, ok := tree.Int("size"); ok && size > largeWindow {
		total += float64(size) / 10
	}
	return total
}
