package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/model"
)

// IdentityVerifier validates a bearer token issued by the identity provider.
type IdentityVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// Identity authenticates marketplace users from "Authorization: Bearer <token>".
// Every failure returns the same 401 body.
func Identity(logger *slog.Logger, verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("identity rejected",
					slog.String("reason", err.Error()),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			setLogUserID(r.Context(), id.UserID)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
		})
	}
}

// OptionalIdentity attaches the caller's identity when a valid token is
// present and otherwise serves the request anonymously.
func OptionalIdentity(verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if id, err := verifier.Verify(token); err == nil {
					setLogUserID(r.Context(), id.UserID)
					r = r.WithContext(auth.ContextWithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
