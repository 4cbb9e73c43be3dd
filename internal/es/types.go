package es

import "encoding/json"

// Hit is one matched document.
type Hit struct {
	Index     string                     `json:"_index"`
	ID        string                     `json:"_id"`
	Score     float64                    `json:"_score"`
	Source    json.RawMessage            `json:"_source"`
	Highlight map[string][]string        `json:"highlight,omitempty"`
	Sort      []any                      `json:"sort,omitempty"`
	Fields    map[string]json.RawMessage `json:"fields,omitempty"`
}

// TotalHits carries the hit count and its counting relation.
type TotalHits struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// Hits is the primary result section.
type Hits struct {
	Total    TotalHits `json:"total"`
	MaxScore *float64  `json:"max_score"`
	Hits     []Hit     `json:"hits"`
}

// SuggestOption is one candidate from a suggester.
type SuggestOption struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Freq  int64   `json:"freq,omitempty"`
}

// SuggestEntry groups suggester options for one input token.
type SuggestEntry struct {
	Text    string          `json:"text"`
	Offset  int             `json:"offset"`
	Length  int             `json:"length"`
	Options []SuggestOption `json:"options"`
}

// Response is a parsed backend search response. Aggregations stay raw; the
// facet planner owns their shape.
type Response struct {
	Took         int64                      `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Hits         Hits                       `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	Suggest      map[string][]SuggestEntry  `json:"suggest,omitempty"`
}
