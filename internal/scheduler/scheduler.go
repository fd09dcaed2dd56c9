// Package scheduler triggers lookup runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/usecase"
)

// Runner performs one synchronous lookup run
type Runner interface {
	Run(ctx context.Context, progress usecase.ProgressFunc) (*domain.PriceRun, error)
}

var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs the price lookup batch on a six-field cron spec
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec and creates a stopped scheduler
func New(spec string, runner Runner, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := specParser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(specParser)),
		spec:   spec,
		runner: runner,
		log:    logger.With().Str("component", "scheduler").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start registers the run and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Trigger(s.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule lookup run: %w", err)
	}
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("Lookup runs scheduled")
	return nil
}

// Stop stops the cron loop, cancels an active run and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Trigger performs one run now. Returns false when the run was skipped
// because another run was still active.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.log.Info().Msg("Scheduled lookup run starting")

	run, err := s.runner.Run(ctx, nil)
	if errors.Is(err, domain.ErrRunInProgress) {
		s.log.Warn().Msg("Previous lookup run still active, skipping")
		return false
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled lookup run failed")
	}
	if run != nil {
		s.log.Info().
			Str("run_id", run.ID).
			Int("products", run.Stats.Products).
			Int("matched", run.Stats.Matched).
			Int("backend_failures", run.Stats.BackendFailures).
			Msg("Scheduled lookup run finished")
	}
	return true
}
