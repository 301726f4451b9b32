//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestEnv migrates the database, serializes DB tests with an advisory lock,
// and starts every test from empty tables.
func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	if err := RunMigrations(dbURL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	repo := NewWithPool(pool)
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.TruncateAll(ctx, pool); err != nil {
		t.Fatalf("reset tables: %v", err)
	}

	return ctx, repo
}

func mustCreateUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()
	user, created, err := repo.CreateUser(ctx, testutil.NewTestUser(t))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if !created {
		t.Fatalf("expected a new user")
	}
	return user
}
