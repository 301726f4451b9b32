package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/campuskart/campuskart/internal/auth"
	"github.com/campuskart/campuskart/internal/cache"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/testutil"
)

type stubVerifier struct {
	id  *model.Identity
	err error
}

func (s stubVerifier) Verify(string) (*model.Identity, error) {
	return s.id, s.err
}

type memKeyStore struct {
	mu      sync.Mutex
	keys    []*model.APIKey
	lookups int
	err     error
}

func (s *memKeyStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memKeyStore) UpdateAPIKeyLastUsed(context.Context, string) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdentity(t *testing.T) {
	alice := &model.Identity{UserID: "user-1", Email: "alice@campus.edu", DisplayName: "Alice"}

	tests := []struct {
		name       string
		header     string
		verifier   stubVerifier
		wantStatus int
	}{
		{"valid token", "Bearer good", stubVerifier{id: alice}, http.StatusOK},
		{"lowercase scheme", "bearer good", stubVerifier{id: alice}, http.StatusOK},
		{"missing header", "", stubVerifier{id: alice}, http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", stubVerifier{id: alice}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", stubVerifier{err: auth.ErrInvalidToken}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.Identity
			handler := Identity(discardLogger(), tt.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.MustIdentityFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && got.UserID != alice.UserID {
				t.Errorf("identity = %+v, want %+v", got, alice)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if body := decodeError(t, rec); body.Code != "UNAUTHORIZED" {
					t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
				}
			}
		})
	}
}

func TestOptionalIdentity(t *testing.T) {
	alice := &model.Identity{UserID: "user-1", Email: "alice@campus.edu"}

	tests := []struct {
		name     string
		header   string
		verifier stubVerifier
		wantUser string
	}{
		{"valid token", "Bearer good", stubVerifier{id: alice}, "user-1"},
		{"anonymous", "", stubVerifier{id: alice}, ""},
		{"rejected token served anonymously", "Bearer bad", stubVerifier{err: auth.ErrInvalidToken}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := OptionalIdentity(tt.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/listings/abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got != tt.wantUser {
				t.Errorf("user = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func newKeyAuth(t *testing.T, scopes ...string) (http.Handler, *memKeyStore, string) {
	t.Helper()

	generated, err := auth.GenerateAPIKey(auth.EnvTest)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	store := &memKeyStore{keys: []*model.APIKey{{
		ID:        "key-1",
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
	}}}

	_, client := testutil.NewRedis(t)
	handler := APIKeyAuth(APIKeyConfig{
		Logger:      discardLogger(),
		Store:       store,
		Cache:       cache.NewWithClient(client),
		MinDuration: time.Millisecond,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.KeyIDFromContext(r.Context()) != "key-1" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, store, generated.Plaintext
}

func TestAPIKeyAuth_AcceptsAndCaches(t *testing.T) {
	handler, store, key := newKeyAuth(t, model.ScopeRead)

	for i, header := range []string{"Authorization", "X-API-Key"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/u1", nil)
		if header == "Authorization" {
			req.Header.Set(header, "Bearer "+key)
		} else {
			req.Header.Set(header, key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d via %s: status = %d, want 200", i, header, rec.Code)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.lookups != 1 {
		t.Errorf("store lookups = %d, want 1 (second request served from cache)", store.lookups)
	}
}

func TestAPIKeyAuth_Rejects(t *testing.T) {
	handler, store, key := newKeyAuth(t, model.ScopeAdmin)

	wrongSecret := key[:len(key)-4] + "0000"
	if wrongSecret == key {
		wrongSecret = key[:len(key)-4] + "1111"
	}

	tests := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"malformed", "not-a-key"},
		{"wrong secret", wrongSecret},
		{"unknown prefix", "ck_test_ffffff_0123456789abcdef0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}

	store.mu.Lock()
	store.err = errors.New("db down")
	store.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", wrongSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("store failure: status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyAuth_EnforcesMinimumDuration(t *testing.T) {
	_, client := testutil.NewRedis(t)
	handler := APIKeyAuth(APIKeyConfig{
		Logger:      discardLogger(),
		Store:       &memKeyStore{},
		Cache:       cache.NewWithClient(client),
		MinDuration: 30 * time.Millisecond,
	})(okHandler())

	start := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("auth returned after %v, want at least 30ms", elapsed)
	}
}
