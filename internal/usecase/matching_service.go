package usecase

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

// Selection defaults
const (
	defaultAcceptanceThreshold = 0.2  // Best score below this is no match
	defaultTieRatio            = 0.95 // Scores within 5% of the best are near-ties
)

// leadingNumberPattern matches the first number, allowing thousands separators ("4.999", "1 064")
var leadingNumberPattern = regexp.MustCompile(`\d+(?:[.\s\x{00a0}]\d{3})*`)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Vocabulary          *Vocabulary
	AcceptanceThreshold float64
	TieRatio            float64
	Logger              zerolog.Logger
}

// MatchingService decides which search-result candidate denotes the same product variant
type MatchingService struct {
	vocab               *Vocabulary
	acceptanceThreshold float64
	tieRatio            float64
	log                 zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	vocab := config.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	threshold := config.AcceptanceThreshold
	if threshold <= 0 {
		threshold = defaultAcceptanceThreshold
	}

	tieRatio := config.TieRatio
	if tieRatio <= 0 || tieRatio > 1 {
		tieRatio = defaultTieRatio
	}

	return &MatchingService{
		vocab:               vocab,
		acceptanceThreshold: threshold,
		tieRatio:            tieRatio,
		log:                 config.Logger.With().Str("component", "matching").Logger(),
	}
}

// Vocabulary returns the word sets in use
func (s *MatchingService) Vocabulary() *Vocabulary {
	return s.vocab
}

// Analyze extracts the features of a query or candidate title
func (s *MatchingService) Analyze(text string) Features {
	return s.vocab.Analyze(text)
}

// Disqualify applies the hard pass/fail rules between a query and a candidate.
// It returns true with a reason when the pair can never be the same product variant.
func (s *MatchingService) Disqualify(query, candidate Features) (bool, string) {
	// Tier symmetry: a tier word on exactly one side changes product identity
	for _, tier := range s.vocab.tierList {
		if query.Tokens.Has(tier) != candidate.Tokens.Has(tier) {
			return true, "tier:" + tier
		}
	}

	if query.HasStorage() && candidate.HasStorage() && *query.StorageGB != *candidate.StorageGB {
		return true, "storage"
	}

	if query.ModelToken != "" && candidate.ModelToken != "" && query.ModelToken != candidate.ModelToken {
		if !s.sameModel(query.ModelToken, candidate.ModelToken) {
			return true, "model"
		}
	}

	return false, ""
}

// sameModel reconciles two differing model tokens. A purely numeric token may
// match a fused one only when the extra letters are tier words ("7" ~ "flip7",
// but never "16" ~ "16e").
func (s *MatchingService) sameModel(a, b string) bool {
	alphaA, numA := splitParts(a)
	alphaB, numB := splitParts(b)

	if !sameSet(numA, numB) {
		return false
	}
	if sameSet(alphaA, alphaB) {
		return true
	}

	switch {
	case len(alphaA) == 0 && len(alphaB) > 0:
		return s.vocab.allTierWords(alphaB)
	case len(alphaB) == 0 && len(alphaA) > 0:
		return s.vocab.allTierWords(alphaA)
	default:
		return false
	}
}

// score computes the graded similarity of a pair that passed disqualification
func (s *MatchingService) score(query, candidate Features) (float64, string) {
	if dq, reason := s.Disqualify(query, candidate); dq {
		return 0, reason
	}
	return SimilarityRatio(query.Normalized, candidate.Normalized), ""
}

// Score returns the match score of a candidate title against a canonical query
func (s *MatchingService) Score(query, title string) float64 {
	score, _ := s.score(s.Analyze(query), s.Analyze(title))
	return score
}

// Evaluate scores every candidate against the query features, ordered by descending score.
// Disqualified candidates keep a score of exactly 0.
func (s *MatchingService) Evaluate(query Features, candidates []domain.Candidate) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		features := s.Analyze(c.Title())
		score, reason := s.score(query, features)

		s.log.Debug().
			Str("query", query.Text).
			Str("title", c.Title()).
			Float64("score", score).
			Str("reason", reason).
			Msg("scored candidate")

		scored = append(scored, domain.ScoredCandidate{
			Candidate: c,
			Score:     score,
			StorageGB: features.StorageGB,
			Reason:    reason,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Select picks the winning candidate and parses its price.
// Both "nothing survived" and "best score too low" are no-match outcomes, never backend failures.
func (s *MatchingService) Select(query Features, scored []domain.ScoredCandidate) domain.Outcome {
	var ranked []domain.ScoredCandidate
	for _, c := range scored {
		if c.Score > 0 {
			ranked = append(ranked, c)
		}
	}
	if len(ranked) == 0 {
		return domain.NoMatch()
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	best := ranked[0].Score
	if best < s.acceptanceThreshold {
		return domain.NoMatch()
	}

	var ties []domain.ScoredCandidate
	for _, c := range ranked {
		if c.Score >= best*s.tieRatio {
			ties = append(ties, c)
		}
	}

	// Without a storage size in the query, prefer the entry-level variant
	if !query.HasStorage() {
		sort.SliceStable(ties, func(i, j int) bool {
			return storageLess(ties[i].StorageGB, ties[j].StorageGB)
		})
	}

	winner := ties[0]
	var price *int
	if p, ok := ParsePrice(winner.Candidate.PriceText()); ok {
		price = &p
	}
	return domain.Matched(price, winner)
}

// Match evaluates and selects in one step. query must already be canonical.
func (s *MatchingService) Match(ctx context.Context, query string, candidates []domain.Candidate) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}
	features := s.Analyze(query)
	return s.Select(features, s.Evaluate(features, candidates)), nil
}

// storageLess orders known capacities ascending with unknown capacities last
func storageLess(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// ParsePrice reads the leading number of a price fragment as an integer.
// "4.999 kr." and "4 999,- kr" both give 4999.
func ParsePrice(text string) (int, bool) {
	m := leadingNumberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	price, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return price, true
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
