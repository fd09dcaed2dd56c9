// Package app wires configuration into the lookup services shared by the
// server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/config"
	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/infrastructure/cache"
	"github.com/tilbudsradar/backend/internal/infrastructure/offers"
	"github.com/tilbudsradar/backend/internal/infrastructure/prisjagt"
	"github.com/tilbudsradar/backend/internal/infrastructure/store"
	"github.com/tilbudsradar/backend/internal/usecase"
)

// App holds the assembled services
type App struct {
	Config  *config.Config
	Matcher *usecase.MatchingService
	Lookup  *usecase.PriceLookupService
	Runs    *usecase.PriceRunService
	Store   domain.ResultStore
	Sources []domain.OfferSource

	closers []func() error
}

// Build connects the configured store and cache and assembles the services
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	resultStore, closeStore, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = resultStore
	a.closers = append(a.closers, closeStore)

	lookupCache, closeCache, err := NewCache(ctx, cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	a.Matcher = NewMatcher(cfg.Matching, logger)
	factory := prisjagt.NewSessionFactory(SearchConfig(cfg.Search), logger)

	a.Lookup = usecase.NewPriceLookupService(factory, a.Matcher, lookupCache, resultStore, usecase.LookupConfig{
		Session: usecase.SessionConfig{
			FailureThreshold: cfg.Session.FailureThreshold,
			RecycleBackoff:   cfg.Session.RecycleBackoff,
		},
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	})

	a.Sources = offers.NewSources(SourceSpecs(cfg.Sources), logger)
	a.Runs = usecase.NewPriceRunService(a.Sources, a.Lookup, logger)

	logger.Info().
		Str("store", cfg.Store.Type).
		Str("cache", cfg.Cache.Type).
		Int("sources", len(a.Sources)).
		Str("vocabulary", a.Matcher.Vocabulary().Version).
		Msg("Services assembled")

	return a, nil
}

// Close releases the store and cache connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewMatcher builds the matching service with any configured extra words
func NewMatcher(cfg config.MatchingConfig, logger zerolog.Logger) *usecase.MatchingService {
	vocab := usecase.DefaultVocabulary().WithExtra(cfg.ExtraTierWords, cfg.ExtraNoiseWords)
	return usecase.NewMatchingService(usecase.MatchConfig{
		Vocabulary:          vocab,
		AcceptanceThreshold: cfg.AcceptanceThreshold,
		TieRatio:            cfg.TieRatio,
		Logger:              logger,
	})
}

// NewStore opens the configured result store
func NewStore(ctx context.Context, cfg config.StoreConfig) (domain.ResultStore, func() error, error) {
	switch cfg.Type {
	case "", "file":
		return store.NewFileStore(cfg.Path), func() error { return nil }, nil
	case "mongo":
		s, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.URI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// NewCache opens the configured lookup cache. The "none" type yields a nil repository.
func NewCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func() error, error) {
	switch cfg.Type {
	case "none":
		return nil, func() error { return nil }, nil
	case "", "memory":
		c := cache.NewMemoryCache(0)
		return c, c.Close, nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.RedisURL, Prefix: cfg.Prefix})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// SearchConfig maps the search section onto the browser backend configuration
func SearchConfig(cfg config.SearchConfig) prisjagt.Config {
	return prisjagt.Config{
		BaseURL:           cfg.BaseURL,
		Categories:        cfg.Categories,
		Sort:              cfg.Sort,
		Availability:      cfg.Availability,
		CardSelector:      cfg.CardSelector,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		ResultsTimeout:    cfg.ResultsTimeout,
		Headless:          cfg.Headless,
		BrowserBin:        cfg.BrowserBin,
		UserAgent:         cfg.UserAgent,
		Locale:            cfg.Locale,
		ViewportWidth:     cfg.ViewportWidth,
		ViewportHeight:    cfg.ViewportHeight,
		ConsentCookies:    cfg.CookieMap(),
		MinInterval:       cfg.MinInterval,
	}
}

// SourceSpecs converts configured sources to offer file specs
func SourceSpecs(sources []config.SourceConfig) []offers.SourceSpec {
	specs := make([]offers.SourceSpec, 0, len(sources))
	for _, src := range sources {
		specs = append(specs, offers.SourceSpec{Provider: src.Provider, Path: src.Path, NameField: src.NameField})
	}
	return specs
}
