package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

// LookupConfig holds configuration for the price lookup service
type LookupConfig struct {
	Session  SessionConfig
	CacheTTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// ProgressFunc is called after each product name has been looked up
type ProgressFunc func(name string, result domain.LookupResult, outcome domain.Outcome)

// PriceLookupService runs sequential market price lookups for a batch of product names.
// Flow per name: canonicalize -> cache -> search + select (with session recycling) -> cache -> record
type PriceLookupService struct {
	factory  domain.SessionFactory
	matcher  *MatchingService
	cache    domain.CacheRepository
	store    domain.ResultStore
	session  SessionConfig
	cacheTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewPriceLookupService creates a new lookup service. cache and store may be nil.
func NewPriceLookupService(
	factory domain.SessionFactory,
	matcher *MatchingService,
	cache domain.CacheRepository,
	store domain.ResultStore,
	config LookupConfig,
) *PriceLookupService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 6 * time.Hour
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	session := config.Session
	session.Logger = config.Logger

	return &PriceLookupService{
		factory:  factory,
		matcher:  matcher,
		cache:    cache,
		store:    store,
		session:  session,
		cacheTTL: cacheTTL,
		now:      now,
		log:      config.Logger.With().Str("component", "lookup").Logger(),
	}
}

// cachedOutcome is the cache representation of a non-failure outcome.
// LookedUpAt is the time of the search that produced it, not of the cache hit.
type cachedOutcome struct {
	Matched    bool   `json:"matched"`
	Price      *int   `json:"price"`
	LookedUpAt string `json:"looked_up_at"`
}

// Run looks up every distinct product name once, strictly one at a time.
// No single product can abort the batch; only ctx cancellation stops it early,
// in which case the partial run is still persisted and returned with ctx's error.
func (s *PriceLookupService) Run(ctx context.Context, names []string, progress ProgressFunc) (*domain.PriceRun, error) {
	return s.RunWithID(ctx, uuid.NewString(), names, progress)
}

// RunWithID is Run with a caller-assigned run id
func (s *PriceLookupService) RunWithID(ctx context.Context, id string, names []string, progress ProgressFunc) (*domain.PriceRun, error) {
	unique := DedupeNames(names)
	started := s.now()
	stamp := started.Format(domain.LookedUpAtLayout)

	run := &domain.PriceRun{
		ID:        id,
		StartedAt: started,
		Results:   make(domain.PriceTable, len(unique)),
	}
	run.Stats.Products = len(unique)

	s.log.Info().
		Str("run_id", run.ID).
		Int("products", len(unique)).
		Msg("Starting price lookup run")

	controller := NewSessionController(s.factory, s.matcher, s.session)
	defer func() {
		if err := controller.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Closing search session")
		}
	}()

	var runErr error
	for _, name := range unique {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		outcome, lookedUpAt, cached := s.lookupOne(ctx, controller, name, stamp)
		if !outcome.Loaded() && ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		if cached {
			run.Stats.CacheHits++
		}
		switch outcome.Kind {
		case domain.OutcomeMatched:
			run.Stats.Matched++
		case domain.OutcomeBackendFailure:
			run.Stats.BackendFailures++
		default:
			run.Stats.NoMatch++
		}

		result := domain.LookupResult{MarketPrice: outcome.Price, LookedUpAt: lookedUpAt}
		run.Results[name] = result
		if progress != nil {
			progress(name, result, outcome)
		}
	}

	run.Stats.Recycles = controller.Recycles()
	run.FinishedAt = s.now()

	s.log.Info().
		Str("run_id", run.ID).
		Int("matched", run.Stats.Matched).
		Int("no_match", run.Stats.NoMatch).
		Int("backend_failures", run.Stats.BackendFailures).
		Int("cache_hits", run.Stats.CacheHits).
		Int("recycles", run.Stats.Recycles).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Price lookup run finished")

	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), run); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("save run: %w", err)
			}
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to save lookup results")
		}
	}

	return run, runErr
}

// lookupOne resolves a single product name and returns the outcome with the time it
// was looked up. A cache hit keeps the time of the original search.
func (s *PriceLookupService) lookupOne(ctx context.Context, controller *SessionController, name, stamp string) (domain.Outcome, string, bool) {
	query := CanonicalQuery(name)
	if Normalize(query) == "" {
		s.log.Warn().Str("name", name).Msg("Empty canonical query, skipping search")
		return domain.NoMatch(), stamp, false
	}

	key := s.cacheKey(query)
	if entry, ok := s.fromCache(ctx, key); ok {
		s.log.Debug().Str("name", name).Str("looked_up_at", entry.LookedUpAt).Msg("Cache hit")
		if entry.Matched {
			return domain.Outcome{Kind: domain.OutcomeMatched, Price: entry.Price}, entry.LookedUpAt, true
		}
		return domain.NoMatch(), entry.LookedUpAt, true
	}

	s.log.Info().Str("name", name).Str("query", query).Msg("Looking up")
	outcome := controller.Lookup(ctx, query)

	evt := s.log.Info().Str("name", name).Str("outcome", outcome.Kind.String())
	if outcome.Price != nil {
		evt = evt.Int("price", *outcome.Price)
	}
	if outcome.Winner != nil {
		evt = evt.Str("title", outcome.Winner.Candidate.Title()).Float64("score", outcome.Winner.Score)
	}
	evt.Msg("Lookup finished")

	if outcome.Loaded() {
		s.toCache(ctx, key, outcome, stamp)
	}
	return outcome, stamp, false
}

// cacheKey creates a cache key from the normalized canonical query.
// Format: "{vocabulary_version}:{normalized_query}". Namespacing is the cache's job.
func (s *PriceLookupService) cacheKey(query string) string {
	return fmt.Sprintf("%s:%s", s.matcher.Vocabulary().Version, Normalize(query))
}

func (s *PriceLookupService) fromCache(ctx context.Context, key string) (cachedOutcome, bool) {
	if s.cache == nil {
		return cachedOutcome{}, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return cachedOutcome{}, false
	}

	var entry cachedOutcome
	if err := json.Unmarshal(data, &entry); err != nil || entry.LookedUpAt == "" {
		return cachedOutcome{}, false
	}
	return entry, true
}

func (s *PriceLookupService) toCache(ctx context.Context, key string, outcome domain.Outcome, stamp string) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(cachedOutcome{
		Matched:    outcome.Kind == domain.OutcomeMatched,
		Price:      outcome.Price,
		LookedUpAt: stamp,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		// Log but don't fail if caching fails
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache lookup outcome")
	}
}

// DedupeNames returns the distinct non-blank names in first-seen order
func DedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
