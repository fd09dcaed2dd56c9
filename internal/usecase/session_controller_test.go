package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilbudsradar/backend/internal/domain"
)

// MockSessionFactory is a mock implementation of domain.SessionFactory.
// Every session it opens answers through the shared respond func.
type MockSessionFactory struct {
	respond  func(call int, query string) ([]domain.Candidate, error)
	openErr  error
	queries  []string
	sessions []*MockSearchSession
}

func NewMockSessionFactory(respond func(call int, query string) ([]domain.Candidate, error)) *MockSessionFactory {
	return &MockSessionFactory{respond: respond}
}

func (f *MockSessionFactory) NewSession(ctx context.Context) (domain.SearchSession, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &MockSearchSession{factory: f}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// MockSearchSession is a mock implementation of domain.SearchSession
type MockSearchSession struct {
	factory *MockSessionFactory
	closed  bool
}

func (s *MockSearchSession) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	call := len(s.factory.queries)
	s.factory.queries = append(s.factory.queries, query)
	return s.factory.respond(call, query)
}

func (s *MockSearchSession) Close() error {
	s.closed = true
	return nil
}

// scripted answers call n with script[n]; true means the page loaded
func scripted(script ...bool) func(int, string) ([]domain.Candidate, error) {
	return func(call int, query string) ([]domain.Candidate, error) {
		if call < len(script) && script[call] {
			return []domain.Candidate{card(query, "1.000 kr.")}, nil
		}
		return nil, fmt.Errorf("%w: timeout", domain.ErrBackendUnavailable)
	}
}

type recordingSleeper struct {
	pauses []time.Duration
}

func (r *recordingSleeper) Sleep(d time.Duration) {
	r.pauses = append(r.pauses, d)
}

func newTestController(factory domain.SessionFactory, sleeper *recordingSleeper) *SessionController {
	return NewSessionController(factory, newTestMatcher(), SessionConfig{
		Sleep:  sleeper.Sleep,
		Logger: zerolog.Nop(),
	})
}

func TestNewSessionController(t *testing.T) {
	c := NewSessionController(NewMockSessionFactory(scripted()), newTestMatcher(), SessionConfig{})
	if c.threshold != 3 {
		t.Errorf("threshold = %d, want 3", c.threshold)
	}
	if c.backoff != 10*time.Second {
		t.Errorf("backoff = %v, want 10s", c.backoff)
	}
}

func TestSessionController_RecycleAndRetry(t *testing.T) {
	ctx := context.Background()
	factory := NewMockSessionFactory(scripted(false, false, false, true, false))
	sleeper := &recordingSleeper{}
	c := newTestController(factory, sleeper)

	outcomes := []domain.Outcome{
		c.Lookup(ctx, "Phone A1"),
		c.Lookup(ctx, "Phone B2"),
		c.Lookup(ctx, "Phone C3"),
	}

	assert.Equal(t, domain.OutcomeBackendFailure, outcomes[0].Kind)
	assert.Equal(t, domain.OutcomeBackendFailure, outcomes[1].Kind)
	assert.Equal(t, domain.OutcomeMatched, outcomes[2].Kind, "retry outcome is the lookup result")

	assert.Equal(t, []string{"Phone A1", "Phone B2", "Phone C3", "Phone C3"}, factory.queries)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeper.pauses)
	require.Len(t, factory.sessions, 2)
	assert.True(t, factory.sessions[0].closed)
	assert.False(t, factory.sessions[1].closed)
	assert.Equal(t, 1, c.Recycles())
	assert.Equal(t, 0, c.ConsecutiveFailures())

	// A later unrelated failure starts counting from zero
	fourth := c.Lookup(ctx, "Phone D4")
	assert.Equal(t, domain.OutcomeBackendFailure, fourth.Kind)
	assert.Equal(t, 1, c.ConsecutiveFailures())
	assert.Equal(t, 1, c.Recycles())
	assert.Len(t, sleeper.pauses, 1)
}

func TestSessionController_RetryFailureIsFinal(t *testing.T) {
	ctx := context.Background()
	factory := NewMockSessionFactory(scripted())
	sleeper := &recordingSleeper{}
	c := newTestController(factory, sleeper)

	for _, q := range []string{"Phone A1", "Phone B2", "Phone C3"} {
		assert.Equal(t, domain.OutcomeBackendFailure, c.Lookup(ctx, q).Kind)
	}

	assert.Equal(t, []string{"Phone A1", "Phone B2", "Phone C3", "Phone C3"}, factory.queries)
	assert.Equal(t, 0, c.ConsecutiveFailures())
	assert.Equal(t, 1, c.Recycles())

	c.Lookup(ctx, "Phone D4")
	c.Lookup(ctx, "Phone E5")
	assert.Equal(t, 2, c.ConsecutiveFailures())
	assert.Equal(t, 1, c.Recycles())
}

func TestSessionController_LoadedResetsCounter(t *testing.T) {
	ctx := context.Background()
	sleeper := &recordingSleeper{}

	t.Run("match resets", func(t *testing.T) {
		factory := NewMockSessionFactory(scripted(false, false, true, false, false))
		c := newTestController(factory, sleeper)
		for _, q := range []string{"Phone A1", "Phone B2", "Phone C3", "Phone D4", "Phone E5"} {
			c.Lookup(ctx, q)
		}
		assert.Equal(t, 2, c.ConsecutiveFailures())
		assert.Equal(t, 0, c.Recycles())
		assert.Len(t, factory.queries, 5)
	})

	t.Run("no match still counts as loaded", func(t *testing.T) {
		factory := NewMockSessionFactory(func(call int, query string) ([]domain.Candidate, error) {
			if call == 2 {
				return nil, nil
			}
			return nil, domain.ErrBackendUnavailable
		})
		c := newTestController(factory, sleeper)

		c.Lookup(ctx, "Phone A1")
		c.Lookup(ctx, "Phone B2")
		outcome := c.Lookup(ctx, "Phone C3")

		assert.Equal(t, domain.OutcomeNoMatch, outcome.Kind)
		assert.True(t, outcome.Loaded())
		assert.Equal(t, 0, c.ConsecutiveFailures())
		assert.Equal(t, 0, c.Recycles())
	})

	assert.Empty(t, sleeper.pauses)
}

func TestSessionController_OpenFailure(t *testing.T) {
	ctx := context.Background()
	factory := NewMockSessionFactory(scripted(true))
	factory.openErr = errors.New("browser did not start")
	sleeper := &recordingSleeper{}
	c := newTestController(factory, sleeper)

	for _, q := range []string{"Phone A1", "Phone B2", "Phone C3"} {
		assert.Equal(t, domain.OutcomeBackendFailure, c.Lookup(ctx, q).Kind)
	}

	assert.Empty(t, factory.queries)
	assert.Len(t, sleeper.pauses, 1)
	assert.Equal(t, 1, c.Recycles())

	// Recovers lazily once the browser can start again
	factory.openErr = nil
	assert.Equal(t, domain.OutcomeMatched, c.Lookup(ctx, "Phone D4").Kind)
	assert.NoError(t, c.Close())
	require.Len(t, factory.sessions, 1)
	assert.True(t, factory.sessions[0].closed)
}

func TestSessionController_CancelledSearchIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	factory := NewMockSessionFactory(scripted())
	sleeper := &recordingSleeper{}
	c := newTestController(factory, sleeper)

	// Two real failures bring the counter one short of the threshold
	for _, q := range []string{"Phone A1", "Phone B2"} {
		assert.Equal(t, domain.OutcomeBackendFailure, c.Lookup(ctx, q).Kind)
	}
	require.Equal(t, 2, c.ConsecutiveFailures())

	factory.respond = func(call int, query string) ([]domain.Candidate, error) {
		cancel()
		return nil, context.Canceled
	}
	assert.Equal(t, domain.OutcomeBackendFailure, c.Lookup(ctx, "Phone C3").Kind)

	assert.Equal(t, 2, c.ConsecutiveFailures())
	assert.Equal(t, 0, c.Recycles())
	assert.Empty(t, sleeper.pauses)
	assert.Equal(t, []string{"Phone A1", "Phone B2", "Phone C3"}, factory.queries, "no retry on a cancelled context")
}
