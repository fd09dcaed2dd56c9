package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchSession is one browsing session against the price-comparison site.
// Search returns ErrBackendUnavailable (wrapped) when the results page did not load.
type SearchSession interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Close() error
}

// SessionFactory opens fresh search sessions
type SessionFactory interface {
	NewSession(ctx context.Context) (SearchSession, error)
}

// OfferSource yields product display names from one retail collaborator
type OfferSource interface {
	Name() string
	ProductNames(ctx context.Context) ([]string, error)
}

// ResultStore persists lookup results keyed by original product display name
type ResultStore interface {
	Save(ctx context.Context, run *PriceRun) error
	Latest(ctx context.Context) (PriceTable, error)
	Get(ctx context.Context, productName string) (*LookupResult, error)
}
