package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/model"
)

// minAuthDuration is the minimum time spent on operator auth, so a cache hit
// and an argon2 miss are indistinguishable.
const minAuthDuration = 200 * time.Millisecond

// APIKeyStore looks up operator keys.
type APIKeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches verified operator contexts keyed by auth.CacheKey.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) *model.AuthContext
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// APIKeyConfig holds dependencies for operator authentication.
type APIKeyConfig struct {
	Logger *slog.Logger
	Store  APIKeyStore
	Cache  AuthCache

	// MinDuration overrides minAuthDuration. Tests set it to a tiny value.
	MinDuration time.Duration
}

// APIKeyAuth authenticates admin requests carrying an operator key in
// "Authorization: Bearer" or "X-API-Key".
func APIKeyAuth(cfg APIKeyConfig) func(http.Handler) http.Handler {
	minDuration := cfg.MinDuration
	if minDuration == 0 {
		minDuration = minAuthDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authCtx, reason := authenticateKey(r, cfg)
			if elapsed := time.Since(start); elapsed < minDuration {
				time.Sleep(minDuration - elapsed)
			}

			if authCtx == nil {
				cfg.Logger.Warn("operator authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing API key")
				return
			}

			setLogKeyID(r.Context(), authCtx.KeyID)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// authenticateKey returns the operator context, or nil and a log reason.
func authenticateKey(r *http.Request, cfg APIKeyConfig) (*model.AuthContext, string) {
	key := extractAPIKey(r)
	if key == "" {
		return nil, "missing_key"
	}

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	ctx := r.Context()
	cacheKey := auth.CacheKey(key)
	if cached := cfg.Cache.GetAuthContext(ctx, cacheKey); cached != nil {
		return cached, ""
	}

	keys, err := cfg.Store.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("api key lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_failed"
	}

	// Prefixes may collide, so every candidate is checked.
	var matched *model.APIKey
	for _, k := range keys {
		if ok, err := auth.VerifyKey(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	authCtx := &model.AuthContext{
		KeyID:     matched.ID,
		KeyPrefix: matched.KeyPrefix,
		Scopes:    matched.Scopes,
	}
	_ = cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx)

	go func(id string) {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cfg.Store.UpdateAPIKeyLastUsed(bg, id)
	}(matched.ID)

	return authCtx, ""
}

// extractAPIKey prefers the Authorization header and falls back to X-API-Key.
func extractAPIKey(r *http.Request) string {
	if key := bearerToken(r); key != "" {
		return key
	}
	return r.Header.Get("X-API-Key")
}
