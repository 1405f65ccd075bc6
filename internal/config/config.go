// Package config defines the top-level configuration for the oracles council
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ORACLES_* environment variables.
type Config struct {
	Council   CouncilConfig   `toml:"council"`
	Providers ProvidersConfig `toml:"providers"`
	Search    SearchConfig    `toml:"search"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Importer  ImporterConfig  `toml:"importer"`
	Notify    NotifyConfig    `toml:"notify"`
	Secrets   SecretsConfig   `toml:"secrets"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// CouncilConfig holds the roster and the per-member protocol bounds.
type CouncilConfig struct {
	Members           []domain.AgentIdentity `toml:"members"`
	ResearchTimeout   duration               `toml:"research_timeout"`
	PredictTimeout    duration               `toml:"predict_timeout"`
	MaxResearchSteps  int                    `toml:"max_research_steps"`
	ResearchMaxTokens int                    `toml:"research_max_tokens"`
	PredictMaxTokens  int                    `toml:"predict_max_tokens"`
	// RunTimeout bounds a whole council run. Zero disables the outer deadline.
	RunTimeout duration `toml:"run_timeout"`
	// LockTTL is how long a per-market run lock is held at most.
	LockTTL duration `toml:"lock_ttl"`
}

// ProviderCredentials holds one model provider's key and optional endpoint.
type ProviderCredentials struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// ProvidersConfig holds credentials for every supported model provider.
type ProvidersConfig struct {
	OpenAI    ProviderCredentials `toml:"openai"`
	Anthropic ProviderCredentials `toml:"anthropic"`
	XAI       ProviderCredentials `toml:"xai"`
}

// SearchConfig selects and bounds the web-search backend.
type SearchConfig struct {
	Provider   string   `toml:"provider"`
	APIKey     string   `toml:"api_key"`
	MaxResults int      `toml:"max_results"`
	CacheTTL   duration `toml:"cache_ttl"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters and cache lifetimes.
type RedisConfig struct {
	Addr          string   `toml:"addr"`
	Password      string   `toml:"password"`
	DB            int      `toml:"db"`
	PoolSize      int      `toml:"pool_size"`
	MaxRetries    int      `toml:"max_retries"`
	TLSEnabled    bool     `toml:"tls_enabled"`
	MarketTTL     duration `toml:"market_ttl"`
	PredictionTTL duration `toml:"prediction_ttl"`
	// KeyPrefix namespaces every key, channel and stream, e.g. "oracles:".
	KeyPrefix string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters. When disabled,
// predictions are not archived.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects mutating endpoints. Empty disables auth.
	APIKey string `toml:"api_key"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `toml:"rate_limit"`
}

// SchedulerConfig drives periodic council sweeps and history exports.
type SchedulerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Interval       duration `toml:"interval"`
	ExportEnabled  bool     `toml:"export_enabled"`
	ExportInterval duration `toml:"export_interval"`
}

// ImporterConfig controls market discovery from the Polymarket Gamma API.
// When enabled, seed mode without a file imports from Gamma and the scheduler
// re-imports on Interval.
type ImporterConfig struct {
	Enabled    bool     `toml:"enabled"`
	GammaURL   string   `toml:"gamma_url"`
	Interval   duration `toml:"interval"`
	MaxMarkets int      `toml:"max_markets"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// SecretsConfig points at an encrypted credentials file. Values found there
// fill provider and search keys that are still empty after env overrides.
type SecretsConfig struct {
	EncryptedPath string `toml:"encrypted_path"`
	Password      string `toml:"password"`
}

// DefaultMembers is the standard three-model council.
func DefaultMembers() []domain.AgentIdentity {
	return []domain.AgentIdentity{
		{ID: "gpt-4.1", DisplayName: "GPT-4.1", ProviderKey: "openai", ModelID: "gpt-4.1", Enabled: true},
		{ID: "claude-sonnet", DisplayName: "Claude Sonnet 4", ProviderKey: "anthropic", ModelID: "claude-sonnet-4-20250514", Enabled: true},
		{ID: "grok-3", DisplayName: "Grok 3", ProviderKey: "xai", ModelID: "grok-3", Enabled: true},
	}
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Council: CouncilConfig{
			Members:           DefaultMembers(),
			ResearchTimeout:   duration{120 * time.Second},
			PredictTimeout:    duration{30 * time.Second},
			MaxResearchSteps:  5,
			ResearchMaxTokens: 4096,
			PredictMaxTokens:  1024,
			LockTTL:           duration{5 * time.Minute},
		},
		Search: SearchConfig{
			Provider:   "tavily",
			MaxResults: 5,
			CacheTTL:   duration{15 * time.Minute},
			RateLimit:  60,
			RateWindow: duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "oracles",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			PoolSize:      20,
			MaxRetries:    3,
			MarketTTL:     duration{5 * time.Minute},
			PredictionTTL: duration{24 * time.Hour},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oracles-data",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Scheduler: SchedulerConfig{
			Enabled:        false,
			Interval:       duration{6 * time.Hour},
			ExportEnabled:  false,
			ExportInterval: duration{24 * time.Hour},
		},
		Importer: ImporterConfig{
			Enabled:    false,
			GammaURL:   "https://gamma-api.polymarket.com",
			Interval:   duration{time.Hour},
			MaxMarkets: 100,
		},
		Notify: NotifyConfig{
			Events: []string{"council_partial", "council_failed"},
		},
		Mode:     "council",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"council":   true,
	"server":    true,
	"scheduler": true,
	"full":      true,
	"seed":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validSearchProviders = map[string]bool{
	"tavily": true,
	"brave":  true,
	"serper": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: council, server, scheduler, full, seed)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Council
	seen := make(map[string]bool, len(c.Council.Members))
	enabled := 0
	for i, m := range c.Council.Members {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("council: members[%d]: id must not be empty", i))
		} else if seen[m.ID] {
			errs = append(errs, fmt.Sprintf("council: duplicate member id %q", m.ID))
		}
		seen[m.ID] = true
		if m.ProviderKey == "" || m.ModelID == "" {
			errs = append(errs, fmt.Sprintf("council: member %q needs provider and model", m.ID))
		}
		if m.Enabled {
			enabled++
		}
	}
	if enabled == 0 && c.Mode != "seed" {
		errs = append(errs, "council: at least one member must be enabled")
	}
	if c.Council.ResearchTimeout.Duration <= 0 {
		errs = append(errs, "council: research_timeout must be > 0")
	}
	if c.Council.PredictTimeout.Duration <= 0 {
		errs = append(errs, "council: predict_timeout must be > 0")
	}
	if c.Council.MaxResearchSteps < 1 {
		errs = append(errs, "council: max_research_steps must be >= 1")
	}
	if c.Council.RunTimeout.Duration < 0 {
		errs = append(errs, "council: run_timeout must not be negative")
	}

	// Search
	if !validSearchProviders[strings.ToLower(c.Search.Provider)] {
		errs = append(errs, fmt.Sprintf("search: unknown provider %q (valid: tavily, brave, serper)", c.Search.Provider))
	}
	if c.Search.MaxResults < 1 {
		errs = append(errs, "search: max_results must be >= 1")
	}
	if c.Search.RateLimit > 0 && c.Search.RateWindow.Duration <= 0 {
		errs = append(errs, "search: rate_window must be > 0 when rate_limit is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Scheduler
	if c.Scheduler.Enabled && c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be > 0 when enabled")
	}
	if c.Scheduler.ExportEnabled {
		if c.Scheduler.ExportInterval.Duration <= 0 {
			errs = append(errs, "scheduler: export_interval must be > 0 when export is enabled")
		}
		if !c.S3.Enabled {
			errs = append(errs, "scheduler: export requires s3.enabled")
		}
	}

	// Importer
	if c.Importer.Enabled {
		if c.Importer.GammaURL == "" {
			errs = append(errs, "importer: gamma_url must not be empty")
		}
		if c.Importer.Interval.Duration <= 0 {
			errs = append(errs, "importer: interval must be > 0")
		}
		if c.Importer.MaxMarkets < 0 {
			errs = append(errs, "importer: max_markets must not be negative")
		}
	}

	// Secrets
	if c.Secrets.EncryptedPath != "" && c.Secrets.Password == "" {
		errs = append(errs, "secrets: password is required when encrypted_path is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EnabledMembers returns the members that take part in council runs.
func (c *Config) EnabledMembers() []domain.AgentIdentity {
	out := make([]domain.AgentIdentity, 0, len(c.Council.Members))
	for _, m := range c.Council.Members {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}
