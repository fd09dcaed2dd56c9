package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilbudsradar/backend/config"
	"github.com/tilbudsradar/backend/internal/infrastructure/cache"
	"github.com/tilbudsradar/backend/internal/infrastructure/store"
	"github.com/tilbudsradar/backend/internal/usecase"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Search: config.SearchConfig{
			BaseURL:        "https://prisjagt.dk",
			Categories:     []string{"pc:mobiltelefoner"},
			ConsentCookies: []config.CookieConfig{{Name: "consentUUID", Value: "abc_53"}},
			MinInterval:    time.Second,
		},
		Matching: config.MatchingConfig{AcceptanceThreshold: 0.2, TieRatio: 0.95},
		Session:  config.SessionConfig{FailureThreshold: 3, RecycleBackoff: 10 * time.Second},
		Sources: []config.SourceConfig{
			{Provider: "telmore", Path: filepath.Join(dir, "telmore.json"), NameField: "product_name"},
			{Provider: "elgiganten", Path: filepath.Join(dir, "elgiganten.json"), NameField: "product"},
		},
		Store: config.StoreConfig{Type: "file", Path: filepath.Join(dir, "prices.json")},
		Cache: config.CacheConfig{Type: "memory", TTL: time.Hour, Prefix: "prisjagt"},
	}
}

func TestBuild(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Matcher)
	assert.NotNil(t, a.Lookup)
	assert.NotNil(t, a.Runs)
	assert.IsType(t, &store.FileStore{}, a.Store)
	require.Len(t, a.Sources, 2)
	assert.Equal(t, "elgiganten", a.Sources[1].Name())

	// Missing offer files are skipped, not fatal
	assert.Empty(t, a.Runs.CollectNames(context.Background()))

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()

	c, closeFn, err := NewCache(ctx, config.CacheConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, closeFn())

	c, closeFn, err = NewCache(ctx, config.CacheConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
	assert.NoError(t, closeFn())

	_, _, err = NewCache(ctx, config.CacheConfig{Type: "redis", RedisURL: "http://not-redis"})
	assert.Error(t, err)

	_, _, err = NewCache(ctx, config.CacheConfig{Type: "disk"})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	s, closeFn, err := NewStore(context.Background(), config.StoreConfig{Type: "file", Path: filepath.Join(t.TempDir(), "p.json")})
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)
	assert.NoError(t, closeFn())

	_, _, err = NewStore(context.Background(), config.StoreConfig{Type: "sqlite"})
	assert.Error(t, err)
}

func TestNewMatcher(t *testing.T) {
	m := NewMatcher(config.MatchingConfig{AcceptanceThreshold: 0.2, TieRatio: 0.95}, zerolog.Nop())
	assert.False(t, m.Vocabulary().IsTierWord("neo"))

	m = NewMatcher(config.MatchingConfig{ExtraTierWords: []string{"Neo"}}, zerolog.Nop())
	assert.True(t, m.Vocabulary().IsTierWord("neo"))
	assert.NotEqual(t, usecase.DefaultVocabularyVersion, m.Vocabulary().Version)
}

func TestSearchConfig(t *testing.T) {
	cfg := SearchConfig(testConfig(t).Search)
	assert.Equal(t, "https://prisjagt.dk", cfg.BaseURL)
	assert.Equal(t, map[string]string{"consentUUID": "abc_53"}, cfg.ConsentCookies)
	assert.Equal(t, time.Second, cfg.MinInterval)
}

func TestSourceSpecs(t *testing.T) {
	specs := SourceSpecs([]config.SourceConfig{{Provider: "cbb", Path: "cbb.json", NameField: "product_name"}})
	require.Len(t, specs, 1)
	assert.Equal(t, "cbb", specs[0].Provider)
	assert.Equal(t, "cbb.json", specs[0].Path)
}
