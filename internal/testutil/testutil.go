// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateAll empties every application table. Migrations must already be applied.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE payments, listings, api_keys, users RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// NewRedis starts an in-memory Redis server and returns a client connected to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}

// NewTestUser creates a user with a fresh entitlement.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	id := UniqueID("user")
	now := time.Now().UTC()
	return &model.User{
		ID:          id,
		Email:       id + "@campus.edu",
		DisplayName: "Test Student",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestListing creates an active listing sold by the given user.
func NewTestListing(t testing.TB, seller *model.User) *model.Listing {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := UniqueID("listing")
	return &model.Listing{
		ID:          id,
		Title:       "Calculus textbook",
		Description: "Lightly used, no highlights",
		Category:    "Books",
		Price:       250,
		ImageURL:    "https://cdn.example.com/listings/" + id + ".jpg",
		ImageKey:    "listings/" + id + ".jpg",
		Status:      model.ListingStatusActive,
		Seller: model.Seller{
			ID:    seller.ID,
			Name:  seller.DisplayName,
			Email: seller.Email,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAPIKey creates an operator API key with sensible defaults.
func NewTestAPIKey(t testing.TB, scopes ...string) *model.APIKey {
	t.Helper()
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}
	return &model.APIKey{
		ID:        UniqueID("key"),
		KeyHash:   UniqueID("hash"),
		KeyPrefix: "ck_test_",
		Scopes:    scopes,
		Name:      "Test Key",
		CreatedAt: time.Now().UTC(),
	}
}
