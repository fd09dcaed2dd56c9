package prisjagt

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tilbudsradar/backend/internal/domain"
)

// Config holds the search backend configuration
type Config struct {
	BaseURL      string
	Categories   []string
	Sort         string
	Availability string
	CardSelector string

	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ResultsTimeout    time.Duration

	Headless       bool
	BrowserBin     string
	UserAgent      string
	Locale         string
	ViewportWidth  int
	ViewportHeight int
	ConsentCookies map[string]string

	// MinInterval is the minimum pause between two searches; zero disables pacing
	MinInterval time.Duration
}

// DefaultCardSelector matches one product card on the results grid
const DefaultCardSelector = `[data-test="ProductGridCard"]`

// hideAutomation runs before any page script
const hideAutomation = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// SearchURL builds the results page URL for a canonical query
func SearchURL(cfg Config, query string) (string, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	params := url.Values{}
	if cfg.Availability != "" {
		params.Set("availability", cfg.Availability)
	}
	params.Set("query", query)
	if len(cfg.Categories) > 0 {
		params.Set("category", strings.Join(cfg.Categories, "|"))
	}
	if cfg.Sort != "" {
		params.Set("sort", cfg.Sort)
	}

	base.Path += "/search"
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// SessionFactory launches browser sessions against the price-comparison site
type SessionFactory struct {
	cfg     Config
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewSessionFactory creates a factory. Sessions it opens share one pacing limiter.
func NewSessionFactory(cfg Config, logger zerolog.Logger) *SessionFactory {
	if cfg.CardSelector == "" {
		cfg.CardSelector = DefaultCardSelector
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 15 * time.Second
	}
	if cfg.ResultsTimeout <= 0 {
		cfg.ResultsTimeout = 8 * time.Second
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &SessionFactory{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.With().Str("component", "prisjagt").Logger(),
	}
}

// NewSession starts a browser, applies the browsing profile and consent
// cookies, and opens the site once before the first search.
func (f *SessionFactory) NewSession(ctx context.Context) (domain.SearchSession, error) {
	l := launcher.New().
		Headless(f.cfg.Headless).
		NoSandbox(true).
		Leakless(false)
	if f.cfg.BrowserBin != "" {
		l = l.Bin(f.cfg.BrowserBin)
	}
	if f.cfg.Locale != "" {
		l = l.Set("lang", f.cfg.Locale)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", domain.ErrBackendUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connect browser: %v", domain.ErrBackendUnavailable, err)
	}

	s := &Session{
		browser:  browser,
		launcher: l,
		cfg:      f.cfg,
		limiter:  f.limiter,
		log:      f.log,
	}
	if err := s.prepare(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	f.log.Info().Str("control_url", controlURL).Msg("Opened search session")
	return s, nil
}

// Session is one browser with one reusable results tab
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      Config
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func (s *Session) prepare(ctx context.Context) error {
	if err := s.browser.SetCookies(s.consentCookies()); err != nil {
		return fmt.Errorf("set consent cookies: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("%w: open tab: %v", domain.ErrBackendUnavailable, err)
	}
	s.page = page

	if _, err := page.EvalOnNewDocument(hideAutomation); err != nil {
		return fmt.Errorf("install page script: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.cfg.UserAgent,
		AcceptLanguage: s.cfg.Locale,
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	if s.cfg.ViewportWidth > 0 && s.cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.ViewportWidth,
			Height:            s.cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
	}

	// Warm-up visit so the first search looks like a returning visitor
	if err := s.navigate(ctx, s.cfg.BaseURL); err != nil {
		return err
	}
	return nil
}

func (s *Session) consentCookies() []*proto.NetworkCookieParam {
	host := s.cfg.BaseURL
	if u, err := url.Parse(s.cfg.BaseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	cookies := make([]*proto.NetworkCookieParam, 0, len(s.cfg.ConsentCookies))
	for name, value := range s.cfg.ConsentCookies {
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:   name,
			Value:  value,
			Domain: host,
			Path:   "/",
		})
	}
	return cookies
}

func (s *Session) navigate(ctx context.Context, target string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(target); err != nil {
		return fmt.Errorf("%w: navigate: %v", domain.ErrBackendUnavailable, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: wait load: %v", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Search loads the results page for query and returns every card that exposes
// both a title and a price fragment. A page that fails to load, or whose cards
// never appear, is reported as ErrBackendUnavailable.
func (s *Session) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for search slot: %w", err)
	}

	target, err := SearchURL(s.cfg, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.navigate(ctx, target); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.cfg.SettleDelay):
	}

	waiter := s.page.Context(ctx).Timeout(s.cfg.ResultsTimeout)
	_, err = waiter.Element(s.cfg.CardSelector)
	waiter.CancelTimeout()
	if err != nil {
		return nil, fmt.Errorf("%w: results did not render: %v", domain.ErrBackendUnavailable, err)
	}

	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: read results page: %v", domain.ErrBackendUnavailable, err)
	}

	cards, err := ParseResultsPage(html, s.cfg.CardSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	candidates := make([]domain.Candidate, 0, len(cards))
	for _, card := range cards {
		candidates = append(candidates, card)
	}

	s.log.Debug().
		Str("query", query).
		Int("candidates", len(candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("Search results parsed")

	return candidates, nil
}

// Close shuts the browser down
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return err
}
