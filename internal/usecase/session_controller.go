package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

const (
	defaultFailureThreshold = 3
	defaultRecycleBackoff   = 10 * time.Second
)

// SessionConfig holds configuration for the session controller
type SessionConfig struct {
	FailureThreshold int
	RecycleBackoff   time.Duration
	// Sleep pauses during a recycle. Defaults to time.Sleep.
	Sleep  func(time.Duration)
	Logger zerolog.Logger
}

// SessionController owns the search session for one run and recycles it after
// repeated backend failures. It is not safe for concurrent use: lookups are sequential.
type SessionController struct {
	factory   domain.SessionFactory
	matcher   *MatchingService
	session   domain.SearchSession
	threshold int
	backoff   time.Duration
	sleep     func(time.Duration)
	log       zerolog.Logger

	failures int
	recycles int
}

// NewSessionController creates a controller. The first session is opened lazily.
func NewSessionController(factory domain.SessionFactory, matcher *MatchingService, config SessionConfig) *SessionController {
	threshold := config.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}

	backoff := config.RecycleBackoff
	if backoff <= 0 {
		backoff = defaultRecycleBackoff
	}

	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &SessionController{
		factory:   factory,
		matcher:   matcher,
		threshold: threshold,
		backoff:   backoff,
		sleep:     sleep,
		log:       config.Logger.With().Str("component", "session").Logger(),
	}
}

// ConsecutiveFailures returns the current failure counter
func (c *SessionController) ConsecutiveFailures() int {
	return c.failures
}

// Recycles returns how many times the session was replaced
func (c *SessionController) Recycles() int {
	return c.recycles
}

// Lookup searches for the canonical query and selects a winner.
// When this failure trips the threshold the session is recycled and the same
// query is attempted exactly once more; that attempt's outcome is final.
func (c *SessionController) Lookup(ctx context.Context, query string) domain.Outcome {
	outcome := c.attempt(ctx, query)
	if outcome.Loaded() {
		c.failures = 0
		return outcome
	}

	// A search cut short by ctx says nothing about the backend
	if ctx.Err() != nil {
		return outcome
	}

	c.failures++
	if c.failures < c.threshold {
		return outcome
	}

	c.recycle(ctx)

	retry := c.attempt(ctx, query)
	c.log.Info().
		Str("query", query).
		Str("outcome", retry.Kind.String()).
		Msg("Retried query after session recycle")
	return retry
}

// attempt runs a single search under the current session
func (c *SessionController) attempt(ctx context.Context, query string) domain.Outcome {
	if c.session == nil {
		if err := c.open(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Failed to open search session")
			return domain.BackendFailure()
		}
	}

	candidates, err := c.session.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			c.log.Warn().Err(err).Str("query", query).Msg("Search failed")
		}
		return domain.BackendFailure()
	}

	if len(candidates) == 0 {
		return domain.NoMatch()
	}

	features := c.matcher.Analyze(query)
	return c.matcher.Select(features, c.matcher.Evaluate(features, candidates))
}

// recycle destroys the current session, pauses, and opens a replacement.
// The pause is unconditional and ignores ctx.
func (c *SessionController) recycle(ctx context.Context) {
	c.log.Warn().
		Int("failures", c.failures).
		Dur("backoff", c.backoff).
		Msg("Recycling search session")

	c.closeSession()
	c.sleep(c.backoff)

	if err := c.open(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to open replacement session")
	}
	c.failures = 0
	c.recycles++
}

func (c *SessionController) open(ctx context.Context) error {
	session, err := c.factory.NewSession(ctx)
	if err != nil {
		return err
	}
	c.session = session
	return nil
}

func (c *SessionController) closeSession() {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		c.log.Debug().Err(err).Msg("Closing search session")
	}
	c.session = nil
}

// Close releases the current session
func (c *SessionController) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
