package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

// PriceRunService collects product names from every offer source and runs
// batch lookups, never more than one at a time.
type PriceRunService struct {
	sources []domain.OfferSource
	lookup  *PriceLookupService
	log     zerolog.Logger

	running sync.Mutex
	mu      sync.RWMutex
	latest  *domain.PriceRun
}

// NewPriceRunService creates a new run service
func NewPriceRunService(sources []domain.OfferSource, lookup *PriceLookupService, logger zerolog.Logger) *PriceRunService {
	return &PriceRunService{
		sources: sources,
		lookup:  lookup,
		log:     logger.With().Str("component", "runs").Logger(),
	}
}

// CollectNames reads every source. A failing source is logged and skipped.
func (s *PriceRunService) CollectNames(ctx context.Context) []string {
	var names []string
	for _, src := range s.sources {
		found, err := src.ProductNames(ctx)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name()).Msg("Skipping offer source")
			continue
		}
		s.log.Debug().Str("source", src.Name()).Int("names", len(found)).Msg("Read offer source")
		names = append(names, found...)
	}
	return names
}

// Run performs one synchronous lookup run.
// Returns ErrRunInProgress if another run is active.
func (s *PriceRunService) Run(ctx context.Context, progress ProgressFunc) (*domain.PriceRun, error) {
	if !s.running.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Unlock()

	return s.run(ctx, uuid.NewString(), progress)
}

// Start launches a run in the background and returns its id immediately.
// Returns ErrRunInProgress if another run is active.
func (s *PriceRunService) Start(ctx context.Context) (string, error) {
	if !s.running.TryLock() {
		return "", domain.ErrRunInProgress
	}

	id := uuid.NewString()
	go func() {
		defer s.running.Unlock()
		if _, err := s.run(context.WithoutCancel(ctx), id, nil); err != nil {
			s.log.Error().Err(err).Str("run_id", id).Msg("Background lookup run failed")
		}
	}()
	return id, nil
}

func (s *PriceRunService) run(ctx context.Context, id string, progress ProgressFunc) (*domain.PriceRun, error) {
	names := s.CollectNames(ctx)
	run, err := s.lookup.RunWithID(ctx, id, names, progress)
	if run != nil {
		s.mu.Lock()
		s.latest = run
		s.mu.Unlock()
	}
	return run, err
}

// Running reports whether a run is currently active
func (s *PriceRunService) Running() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

// Latest returns the most recent run finished by this process
func (s *PriceRunService) Latest() (*domain.PriceRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, domain.ErrNotFound
	}
	return s.latest, nil
}
