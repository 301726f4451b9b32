package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/campuskart/campuskart/internal/cache"
	"github.com/campuskart/campuskart/internal/config"
	"github.com/campuskart/campuskart/internal/handler"
	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/middleware"
	"github.com/campuskart/campuskart/internal/repository"
)

type routerDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	verifier middleware.IdentityVerifier
	repo     *repository.Repository
	cache    *cache.Cache
	gatherer prometheus.Gatherer

	health    *handler.HealthHandler
	listings  *handler.ListingHandler
	accounts  *handler.AccountHandler
	assistant *handler.AssistantHandler
	admin     *handler.AdminHandler
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Method("GET", "/metrics", metrics.Handler(d.gatherer))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    d.logger,
		Limiter:   d.cache,
		Enabled:   d.cfg.RateLimitEnabled,
		UserRPS:   d.cfg.RateLimitUserRPS,
		UserBurst: d.cfg.RateLimitUserBurst,
		IPRPS:     d.cfg.RateLimitIPRPS,
		IPBurst:   d.cfg.RateLimitIPBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public browsing. A valid token lets sellers see their own email.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.Use(middleware.OptionalIdentity(d.verifier))

			r.Get("/listings", d.listings.Feed)
			r.Get("/listings/{id}", d.listings.Get)
		})

		// Marketplace users.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(d.logger, d.verifier))
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Post("/account", d.accounts.Register)
			r.Get("/account", d.accounts.Get)
			r.Post("/payments/unlock", d.accounts.Unlock)

			r.Post("/listings", d.listings.Create)
			r.Patch("/listings/{id}", d.listings.Update)
			r.Post("/listings/{id}/toggle-status", d.listings.ToggleStatus)
			r.Get("/dashboard", d.listings.Dashboard)

			r.Post("/assistant/ask", d.assistant.Ask)
		})

		// Operators.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg))
			r.Use(middleware.APIKeyAuth(middleware.APIKeyConfig{
				Logger: d.logger,
				Store:  d.repo,
				Cache:  d.cache,
			}))

			r.With(middleware.RequireRead()).Get("/users/{id}", d.admin.GetUser)
			r.With(middleware.RequireAdmin()).Post("/users/{id}/grant", d.admin.GrantUser)
			r.With(middleware.RequireAdmin()).Post("/keys", d.admin.CreateKey)
			r.With(middleware.RequireAdmin()).Delete("/keys/{id}", d.admin.RevokeKey)
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
