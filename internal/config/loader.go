package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/oracles/internal/crypto"
	"github.com/alanyoungcy/oracles/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ORACLES_* environment variable overrides, fills
// remaining credentials from the encrypted secrets file, and returns the final
// Config. A missing file at path is not an error; defaults and the
// environment are used instead. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		// A [[council.members]] list replaces the default roster outright.
		defaults := cfg.Council.Members
		cfg.Council.Members = nil
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err != nil || !md.IsDefined("council", "members") {
			cfg.Council.Members = defaults
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := applySecretsFile(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known ORACLES_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). The conventional provider variables (OPENAI_API_KEY, ...) are read
// first so the prefixed forms win.
func applyEnvOverrides(cfg *Config) {
	// ── Providers ──
	setStr(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setStr(&cfg.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setStr(&cfg.Providers.XAI.APIKey, "XAI_API_KEY")
	setStr(&cfg.Providers.OpenAI.APIKey, "ORACLES_PROVIDERS_OPENAI_API_KEY")
	setStr(&cfg.Providers.OpenAI.BaseURL, "ORACLES_PROVIDERS_OPENAI_BASE_URL")
	setStr(&cfg.Providers.Anthropic.APIKey, "ORACLES_PROVIDERS_ANTHROPIC_API_KEY")
	setStr(&cfg.Providers.Anthropic.BaseURL, "ORACLES_PROVIDERS_ANTHROPIC_BASE_URL")
	setStr(&cfg.Providers.XAI.APIKey, "ORACLES_PROVIDERS_XAI_API_KEY")
	setStr(&cfg.Providers.XAI.BaseURL, "ORACLES_PROVIDERS_XAI_BASE_URL")

	// ── Council ──
	setDuration(&cfg.Council.ResearchTimeout, "ORACLES_COUNCIL_RESEARCH_TIMEOUT")
	setDuration(&cfg.Council.PredictTimeout, "ORACLES_COUNCIL_PREDICT_TIMEOUT")
	setInt(&cfg.Council.MaxResearchSteps, "ORACLES_COUNCIL_MAX_RESEARCH_STEPS")
	setInt(&cfg.Council.ResearchMaxTokens, "ORACLES_COUNCIL_RESEARCH_MAX_TOKENS")
	setInt(&cfg.Council.PredictMaxTokens, "ORACLES_COUNCIL_PREDICT_MAX_TOKENS")
	setDuration(&cfg.Council.RunTimeout, "ORACLES_COUNCIL_RUN_TIMEOUT")
	setDuration(&cfg.Council.LockTTL, "ORACLES_COUNCIL_LOCK_TTL")
	setDisabledMembers(cfg.Council.Members, "ORACLES_COUNCIL_DISABLED_MEMBERS")

	// ── Search ──
	setStr(&cfg.Search.APIKey, "TAVILY_API_KEY")
	setStr(&cfg.Search.Provider, "ORACLES_SEARCH_PROVIDER")
	setStr(&cfg.Search.APIKey, "ORACLES_SEARCH_API_KEY")
	setInt(&cfg.Search.MaxResults, "ORACLES_SEARCH_MAX_RESULTS")
	setDuration(&cfg.Search.CacheTTL, "ORACLES_SEARCH_CACHE_TTL")
	setInt(&cfg.Search.RateLimit, "ORACLES_SEARCH_RATE_LIMIT")
	setDuration(&cfg.Search.RateWindow, "ORACLES_SEARCH_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL")
	setStr(&cfg.Postgres.DSN, "ORACLES_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ORACLES_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ORACLES_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ORACLES_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ORACLES_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ORACLES_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ORACLES_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ORACLES_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ORACLES_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ORACLES_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ORACLES_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ORACLES_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ORACLES_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ORACLES_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ORACLES_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ORACLES_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.MarketTTL, "ORACLES_REDIS_MARKET_TTL")
	setDuration(&cfg.Redis.PredictionTTL, "ORACLES_REDIS_PREDICTION_TTL")
	setStr(&cfg.Redis.KeyPrefix, "ORACLES_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ORACLES_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ORACLES_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ORACLES_S3_REGION")
	setStr(&cfg.S3.Bucket, "ORACLES_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ORACLES_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ORACLES_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ORACLES_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ORACLES_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ORACLES_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ORACLES_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ORACLES_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ORACLES_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ORACLES_SERVER_RATE_LIMIT")

	// ── Scheduler ──
	setBool(&cfg.Scheduler.Enabled, "ORACLES_SCHEDULER_ENABLED")
	setDuration(&cfg.Scheduler.Interval, "ORACLES_SCHEDULER_INTERVAL")
	setBool(&cfg.Scheduler.ExportEnabled, "ORACLES_SCHEDULER_EXPORT_ENABLED")
	setDuration(&cfg.Scheduler.ExportInterval, "ORACLES_SCHEDULER_EXPORT_INTERVAL")

	// ── Importer ──
	setBool(&cfg.Importer.Enabled, "ORACLES_IMPORTER_ENABLED")
	setStr(&cfg.Importer.GammaURL, "ORACLES_IMPORTER_GAMMA_URL")
	setDuration(&cfg.Importer.Interval, "ORACLES_IMPORTER_INTERVAL")
	setInt(&cfg.Importer.MaxMarkets, "ORACLES_IMPORTER_MAX_MARKETS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ORACLES_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ORACLES_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ORACLES_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ORACLES_NOTIFY_EVENTS")

	// ── Secrets ──
	setStr(&cfg.Secrets.EncryptedPath, "ORACLES_SECRETS_ENCRYPTED_PATH")
	setStr(&cfg.Secrets.Password, "ORACLES_SECRETS_PASSWORD")

	// ── Top-level ──
	setStr(&cfg.Mode, "ORACLES_MODE")
	setStr(&cfg.LogLevel, "ORACLES_LOG_LEVEL")
}

// Secret names recognised in the encrypted secrets file.
const (
	SecretOpenAIKey    = "openai_api_key"
	SecretAnthropicKey = "anthropic_api_key"
	SecretXAIKey       = "xai_api_key"
	SecretSearchKey    = "search_api_key"
	SecretServerKey    = "server_api_key"
)

// applySecretsFile fills still-empty credentials from the encrypted file.
func applySecretsFile(cfg *Config) error {
	if cfg.Secrets.EncryptedPath == "" {
		return nil
	}
	secrets, err := crypto.OpenFile(cfg.Secrets.EncryptedPath, cfg.Secrets.Password)
	if err != nil {
		return fmt.Errorf("config: load secrets: %w", err)
	}
	fill(&cfg.Providers.OpenAI.APIKey, secrets[SecretOpenAIKey])
	fill(&cfg.Providers.Anthropic.APIKey, secrets[SecretAnthropicKey])
	fill(&cfg.Providers.XAI.APIKey, secrets[SecretXAIKey])
	fill(&cfg.Search.APIKey, secrets[SecretSearchKey])
	fill(&cfg.Server.APIKey, secrets[SecretServerKey])
	return nil
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setDisabledMembers turns off the listed member ids.
func setDisabledMembers(members []domain.AgentIdentity, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	off := make(map[string]bool)
	for _, id := range splitList(v) {
		off[id] = true
	}
	for i := range members {
		if off[members[i].ID] {
			members[i].Enabled = false
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
