package domain

// Candidate is one search-result card surfaced by the search backend
type Candidate interface {
	Title() string
	PriceText() string
}

// StaticCandidate is a Candidate with fixed title and price text
type StaticCandidate struct {
	CardTitle string `json:"title"`
	CardPrice string `json:"price_text"`
}

// Title returns the card title
func (c StaticCandidate) Title() string { return c.CardTitle }

// PriceText returns the card price fragment
func (c StaticCandidate) PriceText() string { return c.CardPrice }

// ScoredCandidate is a candidate evaluated against one query
type ScoredCandidate struct {
	Candidate Candidate
	Score     float64
	StorageGB *int
	// Reason is set when the candidate was disqualified
	Reason string
}

// Disqualified reports whether the candidate was forced to a zero score
func (s ScoredCandidate) Disqualified() bool {
	return s.Score <= 0
}

// OutcomeKind tags the three possible results of one lookup
type OutcomeKind int

const (
	// OutcomeNoMatch means the results page loaded but no candidate fit
	OutcomeNoMatch OutcomeKind = iota
	// OutcomeMatched means a candidate was selected; its price may still be absent
	OutcomeMatched
	// OutcomeBackendFailure means the search could not be performed
	OutcomeBackendFailure
)

// String returns a short label for logs and JSON
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeBackendFailure:
		return "backend_failure"
	default:
		return "no_match"
	}
}

// Outcome is the tagged result of one lookup attempt
type Outcome struct {
	Kind  OutcomeKind
	Price *int
	// Winner is only set for OutcomeMatched
	Winner *ScoredCandidate
}

// Matched builds a matched outcome
func Matched(price *int, winner ScoredCandidate) Outcome {
	return Outcome{Kind: OutcomeMatched, Price: price, Winner: &winner}
}

// NoMatch builds a no-match outcome
func NoMatch() Outcome {
	return Outcome{Kind: OutcomeNoMatch}
}

// BackendFailure builds a backend-failure outcome
func BackendFailure() Outcome {
	return Outcome{Kind: OutcomeBackendFailure}
}

// Loaded reports whether the results page was loaded, whether or not anything matched
func (o Outcome) Loaded() bool {
	return o.Kind != OutcomeBackendFailure
}
