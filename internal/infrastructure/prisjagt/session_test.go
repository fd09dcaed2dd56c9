package prisjagt

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestSearchURL(t *testing.T) {
	cfg := Config{
		BaseURL:      "https://prisjagt.dk/",
		Categories:   []string{"pc:mobiltelefoner", "pc:tablets"},
		Sort:         "score",
		Availability: "AVAILABLE",
	}

	got, err := SearchURL(cfg, "iPhone 16 Pro")
	require.NoError(t, err)
	assert.Equal(t,
		"https://prisjagt.dk/search?availability=AVAILABLE&category=pc%3Amobiltelefoner%7Cpc%3Atablets&query=iPhone+16+Pro&sort=score",
		got)

	t.Run("minimal config", func(t *testing.T) {
		got, err := SearchURL(Config{BaseURL: "https://prisjagt.dk"}, "Galaxy S25+")
		require.NoError(t, err)
		assert.Equal(t, "https://prisjagt.dk/search?query=Galaxy+S25%2B", got)
	})

	t.Run("bad base url", func(t *testing.T) {
		_, err := SearchURL(Config{BaseURL: "://nope"}, "x")
		assert.Error(t, err)
	})
}

func TestNewSessionFactory(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		f := NewSessionFactory(Config{}, zerolog.Nop())
		assert.Equal(t, DefaultCardSelector, f.cfg.CardSelector)
		assert.Equal(t, 15*time.Second, f.cfg.NavigationTimeout)
		assert.Equal(t, 8*time.Second, f.cfg.ResultsTimeout)
		assert.Equal(t, rate.Inf, f.limiter.Limit())
	})

	t.Run("paces searches", func(t *testing.T) {
		f := NewSessionFactory(Config{MinInterval: 2 * time.Second}, zerolog.Nop())
		assert.InDelta(t, 0.5, float64(f.limiter.Limit()), 1e-9)
		assert.True(t, f.limiter.Allow())
		assert.False(t, f.limiter.Allow())
	})
}

func TestConsentCookies(t *testing.T) {
	s := &Session{cfg: Config{
		BaseURL:        "https://prisjagt.dk",
		ConsentCookies: map[string]string{"consentUUID": "abc_53"},
	}}

	cookies := s.consentCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "consentUUID", cookies[0].Name)
	assert.Equal(t, "abc_53", cookies[0].Value)
	assert.Equal(t, "prisjagt.dk", cookies[0].Domain)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestSession_SearchCancelled(t *testing.T) {
	s := &Session{
		cfg:     Config{BaseURL: "https://prisjagt.dk"},
		limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	}
	s.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "iPhone 16")
	assert.Error(t, err)
}
