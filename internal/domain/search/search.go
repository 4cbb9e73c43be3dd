// Package search defines the orchestrated search request and response.
package search

import (
	"encoding/json"
	"time"
)

// Hit is one matched document.
type Hit struct {
	ID         string
	Score      float64
	Source     map[string]any
	Highlights map[string][]string
}

// Hits is the primary result section.
type Hits struct {
	Total    int64
	MaxScore float64
	Items    []Hit
}

// BackendResult is a parsed backend response with aggregation and suggest
// sections kept raw for their owning components.
type BackendResult struct {
	Took         time.Duration
	TimedOut     bool
	Hits         Hits
	Aggregations map[string]json.RawMessage
	Suggest      map[string][]SuggestOption
}

// SuggestOption is one raw suggester candidate.
type SuggestOption struct {
	Text  string
	Score float64
	Freq  int64
}
