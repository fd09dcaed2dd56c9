package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Search    SearchConfig    `mapstructure:"search"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Session   SessionConfig   `mapstructure:"session"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// SearchConfig holds the price comparison site settings
type SearchConfig struct {
	BaseURL           string         `mapstructure:"base_url"`
	Categories        []string       `mapstructure:"categories"`
	Sort              string         `mapstructure:"sort"`
	Availability      string         `mapstructure:"availability"`
	CardSelector      string         `mapstructure:"card_selector"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration  `mapstructure:"settle_delay"`
	ResultsTimeout    time.Duration  `mapstructure:"results_timeout"`
	Headless          bool           `mapstructure:"headless"`
	BrowserBin        string         `mapstructure:"browser_bin"`
	UserAgent         string         `mapstructure:"user_agent"`
	Locale            string         `mapstructure:"locale"`
	ViewportWidth     int            `mapstructure:"viewport_width"`
	ViewportHeight    int            `mapstructure:"viewport_height"`
	ConsentCookies    []CookieConfig `mapstructure:"consent_cookies"`
	MinInterval       time.Duration  `mapstructure:"min_interval"`
}

// CookieConfig is one cookie set before the first search.
// Kept as a list because viper lowercases map keys.
type CookieConfig struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// CookieMap returns the consent cookies keyed by name
func (s SearchConfig) CookieMap() map[string]string {
	cookies := make(map[string]string, len(s.ConsentCookies))
	for _, c := range s.ConsentCookies {
		if c.Name != "" {
			cookies[c.Name] = c.Value
		}
	}
	return cookies
}

// MatchingConfig holds title matching configuration
type MatchingConfig struct {
	AcceptanceThreshold float64  `mapstructure:"acceptance_threshold"`
	TieRatio            float64  `mapstructure:"tie_ratio"`
	ExtraTierWords      []string `mapstructure:"extra_tier_words"`
	ExtraNoiseWords     []string `mapstructure:"extra_noise_words"`
}

// SessionConfig holds browser session lifecycle configuration
type SessionConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecycleBackoff   time.Duration `mapstructure:"recycle_backoff"`
}

// SourceConfig describes one provider offer file
type SourceConfig struct {
	Provider  string `mapstructure:"provider"`
	Path      string `mapstructure:"path"`
	NameField string `mapstructure:"name_field"`
}

// StoreConfig holds result persistence configuration
type StoreConfig struct {
	Type       string `mapstructure:"type"` // "file", "mongo" or "postgres"
	Path       string `mapstructure:"path"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	DSN        string `mapstructure:"dsn"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "none", "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// ScheduleConfig holds the recurring run schedule
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"` // six fields with seconds; empty disables
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tilbudsradar/")

	// Environment variable settings
	v.SetEnvPrefix("TILBUDSRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads a .env file from the working directory without
// overriding variables that are already set
func LoadEnvFile() error {
	return loadEnvFile()
}

func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Search defaults
	v.SetDefault("search.base_url", "https://prisjagt.dk")
	v.SetDefault("search.categories", []string{"pc:mobiltelefoner", "pc:smartwatches", "pc:hovedtelefoner", "pc:tablets"})
	v.SetDefault("search.sort", "score")
	v.SetDefault("search.availability", "AVAILABLE")
	v.SetDefault("search.card_selector", `[data-test="ProductGridCard"]`)
	v.SetDefault("search.navigation_timeout", "15s")
	v.SetDefault("search.settle_delay", "2s")
	v.SetDefault("search.results_timeout", "8s")
	v.SetDefault("search.headless", true)
	v.SetDefault("search.browser_bin", "")
	v.SetDefault("search.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("search.locale", "da-DK")
	v.SetDefault("search.viewport_width", 1920)
	v.SetDefault("search.viewport_height", 1080)
	v.SetDefault("search.consent_cookies", []map[string]any{
		{"name": "consentDate", "value": time.Now().UTC().Format("2006-01-02T15:04:05.000Z")},
		{"name": "consentUUID", "value": uuid.NewString() + "_53"},
	})
	v.SetDefault("search.min_interval", "0s")

	// Matching defaults
	v.SetDefault("matching.acceptance_threshold", 0.2)
	v.SetDefault("matching.tie_ratio", 0.95)
	v.SetDefault("matching.extra_tier_words", []string{})
	v.SetDefault("matching.extra_noise_words", []string{})

	v.SetDefault("session.failure_threshold", 3)
	v.SetDefault("session.recycle_backoff", "10s")

	v.SetDefault("sources", []map[string]any{
		{"provider": "telmore", "path": "data/telmore/telmore_offers.json", "name_field": "product_name"},
		{"provider": "oister", "path": "data/oister/oister_offers.json", "name_field": "product_name"},
		{"provider": "elgiganten", "path": "data/elgiganten/elgiganten_offers.json", "name_field": "product"},
		{"provider": "cbb", "path": "data/cbb/cbb_offers.json", "name_field": "product_name"},
	})

	// Store defaults
	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "data/prisjagt/prisjagt_prices.json")
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", "tilbudsradar")
	v.SetDefault("store.collection", "market_prices")
	v.SetDefault("store.dsn", "")

	// Cache defaults
	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.prefix", "prisjagt")

	v.SetDefault("schedule.cron", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	m := config.Matching
	if m.AcceptanceThreshold <= 0 || m.AcceptanceThreshold > 1 {
		return fmt.Errorf("matching acceptance_threshold must be in (0,1], got: %v", m.AcceptanceThreshold)
	}
	if m.TieRatio <= 0 || m.TieRatio > 1 {
		return fmt.Errorf("matching tie_ratio must be in (0,1], got: %v", m.TieRatio)
	}

	if config.Session.FailureThreshold < 1 {
		return fmt.Errorf("session failure_threshold must be at least 1, got: %d", config.Session.FailureThreshold)
	}
	if config.Session.RecycleBackoff < 0 {
		return fmt.Errorf("session recycle_backoff must not be negative")
	}

	if config.Search.BaseURL == "" {
		return fmt.Errorf("search base_url is required")
	}

	switch config.Store.Type {
	case "file":
		if config.Store.Path == "" {
			return fmt.Errorf("store path is required when store type is 'file'")
		}
	case "mongo":
		if config.Store.URI == "" {
			return fmt.Errorf("store uri is required when store type is 'mongo'")
		}
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store dsn is required when store type is 'postgres'")
		}
	default:
		return fmt.Errorf("store type must be 'file', 'mongo' or 'postgres', got: %s", config.Store.Type)
	}

	switch config.Cache.Type {
	case "none", "memory":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be 'none', 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if len(config.Sources) == 0 {
		return fmt.Errorf("at least one offer source is required")
	}
	for i, src := range config.Sources {
		if src.Provider == "" || src.Path == "" {
			return fmt.Errorf("source %d needs provider and path", i)
		}
	}

	if config.RateLimit.PerIP < 1 {
		return fmt.Errorf("ratelimit per_ip must be at least 1, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
