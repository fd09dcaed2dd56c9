// Package offers reads the offer files written by the retail scraping collaborators.
package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
)

// FileSource reads product display names from one provider's JSON offer file.
// The file holds an array of offer objects; NameField is a dotted path into each object.
type FileSource struct {
	Provider  string
	Path      string
	NameField string
	log       zerolog.Logger
}

// NewFileSource creates a file-backed offer source
func NewFileSource(provider, path, nameField string, logger zerolog.Logger) *FileSource {
	if nameField == "" {
		nameField = "product_name"
	}
	return &FileSource{
		Provider:  provider,
		Path:      path,
		NameField: nameField,
		log:       logger.With().Str("component", "offers").Str("provider", provider).Logger(),
	}
}

// Name returns the provider name
func (s *FileSource) Name() string {
	return s.Provider
}

// ProductNames returns every non-empty display name in the file, in file order.
// A missing file yields no names.
func (s *FileSource) ProductNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Str("path", s.Path).Msg("Offer file not found, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnreadable, s.Path, err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnreadable, s.Path, err)
	}

	path := strings.Split(s.NameField, ".")
	names := make([]string, 0, len(records))
	for _, record := range records {
		if name, ok := lookupString(record, path); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Offers returns the records as domain offers
func (s *FileSource) Offers(ctx context.Context) ([]domain.Offer, error) {
	names, err := s.ProductNames(ctx)
	if err != nil {
		return nil, err
	}
	offers := make([]domain.Offer, 0, len(names))
	for _, name := range names {
		offers = append(offers, domain.Offer{Provider: s.Provider, ProductName: name})
	}
	return offers, nil
}

// lookupString follows path through nested objects and returns the string as written.
// Blank strings are rejected.
func lookupString(record map[string]any, path []string) (string, bool) {
	var current any = record
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}

	s, ok := current.(string)
	if !ok {
		return "", false
	}
	return s, strings.TrimSpace(s) != ""
}
