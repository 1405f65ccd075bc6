package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/oracles/internal/blob/s3"
	"github.com/alanyoungcy/oracles/internal/cache/redis"
	"github.com/alanyoungcy/oracles/internal/config"
	"github.com/alanyoungcy/oracles/internal/council"
	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/llm/provider"
	"github.com/alanyoungcy/oracles/internal/metrics"
	"github.com/alanyoungcy/oracles/internal/notify"
	"github.com/alanyoungcy/oracles/internal/pipeline"
	"github.com/alanyoungcy/oracles/internal/platform/polymarket"
	"github.com/alanyoungcy/oracles/internal/search"
	"github.com/alanyoungcy/oracles/internal/server/handler"
	"github.com/alanyoungcy/oracles/internal/service"
	"github.com/alanyoungcy/oracles/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore     domain.MarketStore
	PredictionStore domain.PredictionStore
	AuditStore      domain.AuditStore

	// Caches and coordination
	MarketCache     domain.MarketCache
	PredictionCache domain.PredictionCache
	SearchCache     domain.SearchCache
	RateLimiter     domain.RateLimiter
	LockManager     domain.LockManager
	SignalBus       domain.SignalBus

	// Blob storage. Both are nil when s3 is disabled.
	Archive  domain.PredictionArchive
	Exporter *s3blob.Exporter

	Notifier *notify.Notifier
	Metrics  *metrics.Manager

	// Services. Council is nil in seed mode.
	Markets *service.MarketService
	Council *service.CouncilService

	// Importer pulls markets from Polymarket. Nil unless importer.enabled.
	Importer *pipeline.MarketImporter

	// Checks are reported by the health endpoint.
	Checks map[string]handler.Pinger
}

// pingFunc adapts a health function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// needsCouncil reports whether the mode runs councils and therefore needs
// model and search credentials.
func needsCouncil(mode string) bool {
	return mode != "seed"
}

// Wire constructs all concrete dependency implementations from cfg and
// returns them together with a cleanup function to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(stage string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", stage, err)
	}

	mode := strings.ToLower(cfg.Mode)
	deps := &Dependencies{
		Metrics: metrics.NewManager(),
		Checks:  make(map[string]handler.Pinger),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return fail("postgres", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail("postgres migrations", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.PredictionStore = postgres.NewPredictionStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.Checks["postgres"] = pgClient

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return fail("redis", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
	deps.PredictionCache = redis.NewPredictionCache(redisClient, cfg.Redis.PredictionTTL.Duration)
	deps.SearchCache = redis.NewSearchCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Checks["redis"] = redisClient

	// --- S3 archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		writer := s3blob.NewWriter(s3Client)
		deps.Archive = s3blob.NewPredictionArchive(writer, s3blob.NewReader(s3Client))
		deps.Exporter = s3blob.NewExporter(writer, deps.AuditStore)
		deps.Checks["s3"] = pingFunc(s3Client.Health)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	deps.Markets = service.NewMarketService(deps.MarketStore, deps.MarketCache, logger)

	if cfg.Importer.Enabled {
		gamma := polymarket.NewGammaClient(cfg.Importer.GammaURL, nil, logger)
		deps.Importer = pipeline.NewMarketImporter(deps.Markets, gamma, cfg.Importer.MaxMarkets, logger)
	}

	if !needsCouncil(mode) {
		return deps, cleanup, nil
	}

	coordinator, err := wireCouncil(cfg, deps, logger)
	if err != nil {
		return fail("council", err)
	}

	deps.Council = service.NewCouncilService(service.CouncilDeps{
		Markets:     deps.Markets,
		Council:     coordinator,
		Predictions: deps.PredictionStore,
		Cache:       deps.PredictionCache,
		Archive:     deps.Archive,
		Locks:       deps.LockManager,
		Bus:         deps.SignalBus,
		Audit:       deps.AuditStore,
		Notifier:    deps.Notifier,
		LockTTL:     cfg.Council.LockTTL.Duration,
	}, logger)

	return deps, cleanup, nil
}

// wireCouncil builds the model registry, the cached searcher and the
// coordinator. Missing credentials for an enabled member fail here, before
// any run is dispatched.
func wireCouncil(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*council.Coordinator, error) {
	roster := council.NewMembership(cfg.Council.Members)

	registry := provider.NewRegistry(provider.Config{
		OpenAI:    provider.Credentials{APIKey: cfg.Providers.OpenAI.APIKey, BaseURL: cfg.Providers.OpenAI.BaseURL},
		Anthropic: provider.Credentials{APIKey: cfg.Providers.Anthropic.APIKey, BaseURL: cfg.Providers.Anthropic.BaseURL},
		XAI:       provider.Credentials{APIKey: cfg.Providers.XAI.APIKey, BaseURL: cfg.Providers.XAI.BaseURL},
	}, nil)
	if err := registry.Validate(roster.Enabled()); err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	providerName := strings.ToLower(cfg.Search.Provider)
	backend, err := search.New(search.Provider(providerName), cfg.Search.APIKey, cfg.Search.MaxResults, nil)
	if err != nil {
		return nil, err
	}
	searcher := search.NewCached(backend, deps.SearchCache, deps.RateLimiter, search.CacheOptions{
		Provider: providerName,
		TTL:      cfg.Search.CacheTTL.Duration,
		Limit:    cfg.Search.RateLimit,
		Window:   cfg.Search.RateWindow.Duration,
		Observer: deps.Metrics,
	}, logger)

	runner := council.NewRunner(registry, searcher, council.RunnerConfig{
		ResearchTimeout:   cfg.Council.ResearchTimeout.Duration,
		PredictTimeout:    cfg.Council.PredictTimeout.Duration,
		MaxResearchSteps:  cfg.Council.MaxResearchSteps,
		ResearchMaxTokens: cfg.Council.ResearchMaxTokens,
		PredictMaxTokens:  cfg.Council.PredictMaxTokens,
	}, logger)

	logger.Info("council wired",
		slog.Int("members", len(roster.Enabled())),
		slog.String("search_provider", providerName),
	)

	return council.NewCoordinator(
		roster,
		runner,
		logger,
		council.WithRecorder(deps.Metrics),
		council.WithRunTimeout(cfg.Council.RunTimeout.Duration),
	), nil
}
