package offers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

// SourceSpec describes one provider's offer file
type SourceSpec struct {
	Provider  string
	Path      string
	NameField string
}

// DefaultSources are the offer files of the four retail collaborators
var DefaultSources = []SourceSpec{
	{Provider: "telmore", Path: "data/telmore/telmore_offers.json", NameField: "product_name"},
	{Provider: "oister", Path: "data/oister/oister_offers.json", NameField: "product_name"},
	{Provider: "elgiganten", Path: "data/elgiganten/elgiganten_offers.json", NameField: "product"},
	{Provider: "cbb", Path: "data/cbb/cbb_offers.json", NameField: "product_name"},
}

// NewSources builds one file source per entry
func NewSources(specs []SourceSpec, logger zerolog.Logger) []domain.OfferSource {
	sources := make([]domain.OfferSource, 0, len(specs))
	for _, s := range specs {
		sources = append(sources, NewFileSource(s.Provider, s.Path, s.NameField, logger))
	}
	return sources
}

// Catalog merges several offer sources into one deduplicated name list
type Catalog struct {
	sources []domain.OfferSource
	log     zerolog.Logger
}

// NewCatalog creates a catalog over the given sources
func NewCatalog(sources []domain.OfferSource, logger zerolog.Logger) *Catalog {
	return &Catalog{sources: sources, log: logger.With().Str("component", "catalog").Logger()}
}

// Name identifies the catalog when used as a single source
func (c *Catalog) Name() string {
	return "catalog"
}

// ProductNames returns the distinct names across all sources in first-seen order.
// Unreadable sources are logged and skipped.
func (c *Catalog) ProductNames(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, src := range c.sources {
		found, err := src.ProductNames(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Str("source", src.Name()).Msg("Skipping offer source")
			continue
		}
		for _, name := range found {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names, nil
}
