// Package suggest defines suggestion candidates and their source types.
package suggest

// SourceType identifies where a suggestion candidate came from.
type SourceType string

// Candidate sources.
const (
	SourceCompletion   SourceType = "completion"
	SourceTerm         SourceType = "term"
	SourcePhrase       SourceType = "phrase"
	SourcePopular      SourceType = "popular"
	SourceTrending     SourceType = "trending"
	SourcePersonalized SourceType = "personalized"
	SourceSemantic     SourceType = "semantic"
	SourceCorrection   SourceType = "correction"
)

// TypeBoost is the ranking multiplier per source type. Corrections and
// semantic alternatives rank below exact index suggestions.
var TypeBoost = map[SourceType]float64{
	SourceCompletion:   1.5,
	SourcePersonalized: 1.4,
	SourcePopular:      1.3,
	SourceTrending:     1.2,
	SourceTerm:         1.1,
	SourcePhrase:       1.1,
	SourceCorrection:   0.9,
	SourceSemantic:     0.8,
}

// Candidate is one suggestion before or after ranking.
type Candidate struct {
	Text      string
	Score     float64
	Source    SourceType
	Frequency int64
	Metadata  map[string]string
}

// Config enables one suggestion source with its parameters.
type Config struct {
	Source SourceType
	Field  string // index field for completion/term/phrase sources
	Size   int
}

// UserContext carries the requesting user for personalized sources.
type UserContext struct {
	UserID  string
	History []string
}
