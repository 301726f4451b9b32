// Package main is the entrypoint for the CampusKart API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campuskart/campuskart/internal/assistant"
	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/cache"
	"github.com/campuskart/campuskart/internal/cleanup"
	"github.com/campuskart/campuskart/internal/config"
	"github.com/campuskart/campuskart/internal/handler"
	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/moderation"
	"github.com/campuskart/campuskart/internal/repository"
	"github.com/campuskart/campuskart/internal/server"
	"github.com/campuskart/campuskart/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		if !errors.Is(err, errStartup) {
			logger.Error("server error", "error", err)
		}
		os.Exit(1)
	}
}

// errStartup reports a failure that run has already logged.
var errStartup = errors.New("startup failed")

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			return errStartup
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errStartup
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errStartup
	}
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	store, err := imagestore.NewMinioStore(ctx, imagestore.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		logger.Error("failed to connect to object storage", "error", err, "endpoint", cfg.Storage.Endpoint)
		return errStartup
	}
	logger.Info("connected to object storage", "bucket", cfg.Storage.Bucket)

	publicBaseURL := cfg.Storage.PublicBaseURL
	if publicBaseURL == "" {
		publicBaseURL = imagestore.PublicBaseURL(cfg.Storage.Endpoint, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	}
	uploader := imagestore.NewUploader(store, publicBaseURL, imagestore.DefaultRetryPolicy, logger, recorder)

	rules := moderation.DefaultRules()
	if cfg.Moderation.RulesFile != "" {
		rules, err = moderation.LoadRules(cfg.Moderation.RulesFile)
		if err != nil {
			repo.Close()
			_ = cacheClient.Close()
			logger.Error("failed to load moderation rules", "error", err, "path", cfg.Moderation.RulesFile)
			return errStartup
		}
	}
	moderationHTTP := moderation.NewHTTPClient(cfg.Moderation.Timeout)
	gate := moderation.NewGate(
		moderation.NewSightengineClient(moderation.SightengineConfig{
			URL:    cfg.Moderation.SightengineURL,
			User:   cfg.Moderation.SightengineUser,
			Secret: cfg.Moderation.SightengineSecret,
			RPS:    cfg.Moderation.RPS,
		}, moderationHTTP),
		moderation.NewHiveClient(moderation.HiveConfig{
			URL:    cfg.Moderation.HiveURL,
			APIKey: cfg.Moderation.HiveAPIKey,
			RPS:    cfg.Moderation.RPS,
		}, moderationHTTP),
		rules,
		logger,
		recorder,
	)

	cleaner := cleanup.NewCleaner(uploader, cacheClient.Client(), logger, recorder)
	cleanupWorker := cleanup.NewWorker(cacheClient.Client(), uploader, logger, cleanup.NewConsumerID(), recorder)

	quota := service.NewEntitlementTracker(repo, cfg.UnlockPrice, logger, recorder)
	listings := service.NewListingService(service.ListingDeps{
		Listings:  repo,
		Quota:     quota,
		Uploader:  uploader,
		Moderator: gate,
		Orphans:   cleaner,
		Cache:     cache.NewListingCache(cacheClient, cfg.ListingCacheTTL),
		Logger:    logger,
		Metrics:   recorder,
	}, service.ListingConfig{
		MaxImageBytes: cfg.Storage.MaxImageBytes,
		ModerateEdits: cfg.Moderation.ModerateEdits,
	})
	accounts := service.NewAccountService(repo, cfg.GetAllowedEmailDomains(), logger)
	keyEnv := auth.EnvTest
	if cfg.IsProduction() {
		keyEnv = auth.EnvLive
	}
	keys := service.NewAPIKeyService(repo, keyEnv, logger)

	verifier, err := auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		logger.Error("failed to create token verifier", "error", err)
		return errStartup
	}

	router := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		verifier: verifier,
		repo:     repo,
		cache:    cacheClient,
		gatherer: registry,
		health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"postgres": repo,
			"redis":    cacheClient,
			"storage":  store,
		}),
		listings:  handler.NewListingHandler(listings, logger),
		accounts:  handler.NewAccountHandler(accounts, quota, logger),
		assistant: handler.NewAssistantHandler(assistant.New(assistant.Config(cfg.Assistant), logger), logger),
		admin:     handler.NewAdminHandler(accounts, quota, keys, logger),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run in reverse: the worker stops before Redis and Postgres close.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("cleanup-worker", cleanupWorker.Shutdown)
	srv.Go(ctx, "cleanup-worker", cleanupWorker.Run)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"allowed_domains", cfg.GetAllowedEmailDomains(),
		"moderate_edits", cfg.Moderation.ModerateEdits,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "campuskart-api")
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}
	return parsed.String()
}

// sanitizeError removes connection secrets from driver errors before logging.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}
	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
