// Package store persists lookup results keyed by original product display name.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/tilbudsradar/backend/internal/domain"
)

// DefaultFilePath is where the price table is written when no path is configured
const DefaultFilePath = "data/prisjagt/prisjagt_prices.json"

// FileStore writes the latest price table as an indented JSON object.
// Each Save replaces the whole file.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file store at path
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

// Path returns the output file path
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the run's results atomically
func (s *FileStore) Save(ctx context.Context, run *domain.PriceRun) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", domain.ErrInvalidRequest)
	}

	data, err := EncodeTable(run.Results)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prices-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Latest reads the price table from disk
func (s *FileStore) Latest(ctx context.Context) (domain.PriceTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var table domain.PriceTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStoreUnavailable, s.path, err)
	}
	return table, nil
}

// Get returns the stored result for one product name
func (s *FileStore) Get(ctx context.Context, productName string) (*domain.LookupResult, error) {
	table, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	result, ok := table[productName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &result, nil
}

// EncodeTable renders a price table with four-space indentation and
// unescaped non-ASCII and HTML characters
func EncodeTable(table domain.PriceTable) ([]byte, error) {
	if table == nil {
		table = domain.PriceTable{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(table); err != nil {
		return nil, fmt.Errorf("encode price table: %w", err)
	}
	return buf.Bytes(), nil
}
