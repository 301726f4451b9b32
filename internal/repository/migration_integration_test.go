//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/campuskart/campuskart/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, repo := newTestEnv(t)

	for _, table := range []string{"users", "listings", "api_keys", "payments"} {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, repo.pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_VersionIsCurrent(t *testing.T) {
	newTestEnv(t)
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	version, dirty, err := MigrationVersion(dbURL)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if dirty {
		t.Error("schema should not be dirty")
	}
	if version != 4 {
		t.Errorf("version = %d, want 4", version)
	}

	// Re-running is a no-op.
	if err := RunMigrations(dbURL); err != nil {
		t.Errorf("second RunMigrations failed: %v", err)
	}
}

func TestIntegrationMigration_ListingConstraints(t *testing.T) {
	ctx, repo := newTestEnv(t)
	user := mustCreateUser(t, ctx, repo)

	testCases := map[string]string{
		"non-positive price": `INSERT INTO listings (id, title, description, category, price, image_url, seller_id)
			VALUES ('l1', 't', 'd', 'Books', 0, 'u', $1)`,
		"unknown status": `INSERT INTO listings (id, title, description, category, price, image_url, status, seller_id)
			VALUES ('l2', 't', 'd', 'Books', 5, 'u', 'deleted', $1)`,
		"unknown seller": `INSERT INTO listings (id, title, description, category, price, image_url, seller_id)
			VALUES ('l3', 't', 'd', 'Books', 5, 'u', 'nobody' || $1)`,
	}

	for name, stmt := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.pool.Exec(ctx, stmt, user.ID); err == nil {
				t.Error("expected constraint violation")
			}
		})
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}
