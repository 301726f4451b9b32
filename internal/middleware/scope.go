package middleware

import (
	"net/http"
	"strings"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/model"
)

// RequireScope passes operators holding any of the given scopes. Admin
// implies every scope. Must run after APIKeyAuth.
func RequireScope(scopes ...string) func(http.Handler) http.Handler {
	need := strings.Join(scopes, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op := auth.AuthFromContext(r.Context())
			if op == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, s := range scopes {
				if op.HasScope(s) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "API key lacks the "+need+" scope")
		})
	}
}

func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
