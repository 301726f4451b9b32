package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/cache"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/testutil"
)

func newRateLimitConfig(t *testing.T) RateLimitConfig {
	t.Helper()
	_, client := testutil.NewRedis(t)
	return RateLimitConfig{
		Logger:    discardLogger(),
		Limiter:   cache.NewWithClient(client),
		Enabled:   true,
		UserRPS:   1,
		UserBurst: 2,
		IPRPS:     1,
		IPBurst:   3,
	}
}

func userRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)
	return req.WithContext(auth.ContextWithIdentity(req.Context(), &model.Identity{UserID: userID}))
}

func TestRateLimitUser_BurstThen429(t *testing.T) {
	handler := RateLimitUser(newRateLimitConfig(t))(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, userRequest("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, userRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if secs, err := strconv.Atoi(rec.Header().Get("Retry-After")); err != nil || secs < 1 {
		t.Errorf("Retry-After = %q, want positive seconds", rec.Header().Get("Retry-After"))
	}
	if body := decodeError(t, rec); body.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", body.Code)
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, userRequest("user-2"))
	if other.Code != http.StatusOK {
		t.Errorf("other user throttled: status = %d", other.Code)
	}
}

func TestRateLimitUser_SkipsWhenDisabledOrAnonymous(t *testing.T) {
	cfg := newRateLimitConfig(t)
	cfg.UserBurst = 1
	cfg.Enabled = false
	disabled := RateLimitUser(cfg)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, userRequest("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter returned %d", rec.Code)
		}
	}

	cfg.Enabled = true
	anonymous := RateLimitUser(cfg)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		anonymous.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("anonymous request returned %d", rec.Code)
		}
	}
}

func TestRateLimitIP(t *testing.T) {
	handler := RateLimitIP(newRateLimitConfig(t))(okHandler())

	send := func(remoteAddr, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
		req.RemoteAddr = remoteAddr
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := send("10.0.0.1:1234", ""); code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, code)
		}
	}
	if code := send("10.0.0.1:5678", ""); code != http.StatusTooManyRequests {
		t.Errorf("same host on another port: status = %d, want 429", code)
	}
	if code := send("10.0.0.1:1234", "203.0.113.7, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("forwarded client: status = %d, want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr", "192.0.2.1:4000", "", "", "192.0.2.1"},
		{"first forwarded hop", "10.0.0.1:1", "203.0.113.7, 10.0.0.1", "", "203.0.113.7"},
		{"real ip", "10.0.0.1:1", "", "198.51.100.2", "198.51.100.2"},
		{"remote without port", "192.0.2.9", "", "", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
