package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilbudsradar/backend/internal/domain"
)

// MockOfferSource is a mock implementation of domain.OfferSource
type MockOfferSource struct {
	name  string
	names []string
	err   error
}

func (m *MockOfferSource) Name() string { return m.name }

func (m *MockOfferSource) ProductNames(ctx context.Context) ([]string, error) {
	return m.names, m.err
}

func newTestRunService(store domain.ResultStore) (*PriceRunService, *MockSessionFactory) {
	factory := NewMockSessionFactory(catalogResponder)
	sources := []domain.OfferSource{
		&MockOfferSource{name: "telmore", names: []string{"iPhone 16 (sort)", "Samsung Galaxy A36 5G smartphone"}},
		&MockOfferSource{name: "oister", err: domain.ErrSourceUnreadable},
		&MockOfferSource{name: "cbb", names: []string{"iPhone 16 (sort)"}},
	}
	lookup := newTestLookupService(factory, nil, store)
	return NewPriceRunService(sources, lookup, zerolog.Nop()), factory
}

func TestPriceRunService_CollectNames(t *testing.T) {
	svc, _ := newTestRunService(nil)

	names := svc.CollectNames(context.Background())
	assert.Equal(t, []string{"iPhone 16 (sort)", "Samsung Galaxy A36 5G smartphone", "iPhone 16 (sort)"}, names)
}

func TestPriceRunService_Run(t *testing.T) {
	store := &MockResultStore{}
	svc, factory := newTestRunService(store)

	_, err := svc.Latest()
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	run, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, run.Results, 2)
	assert.Len(t, factory.queries, 2)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Same(t, run, latest)
	assert.False(t, svc.Running())
}

func TestPriceRunService_OneRunAtATime(t *testing.T) {
	svc, _ := newTestRunService(nil)

	svc.running.Lock()
	assert.True(t, svc.Running())

	_, err := svc.Run(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	_, err = svc.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	svc.running.Unlock()
}

func TestPriceRunService_Start(t *testing.T) {
	svc, _ := newTestRunService(&MockResultStore{})

	id, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		run, err := svc.Latest()
		return err == nil && run.ID == id
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return !svc.Running() }, 2*time.Second, 10*time.Millisecond)
}
