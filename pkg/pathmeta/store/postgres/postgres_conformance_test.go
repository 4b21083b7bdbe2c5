//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/store/postgres"
	"github.com/marmos91/metacache/pkg/pathmeta/storetest"
)

func TestConformance(t *testing.T) {
	// Skip unless a PostgreSQL instance is provided.
	if os.Getenv("METACACHE_TEST_POSTGRES") == "" {
		t.Skip("METACACHE_TEST_POSTGRES not set, skipping PostgreSQL conformance tests")
	}

	cfg := postgres.Config{
		Host:     envOr("METACACHE_TEST_POSTGRES_HOST", "localhost"),
		Port:     5432,
		Database: envOr("METACACHE_TEST_POSTGRES_DB", "metacache_test"),
		User:     envOr("METACACHE_TEST_POSTGRES_USER", "postgres"),
		Password: envOr("METACACHE_TEST_POSTGRES_PASSWORD", "postgres"),
		SSLMode:  "disable",
	}

	storetest.RunConformanceSuite(t, func(t *testing.T) pathmeta.MetadataStore {
		store, err := postgres.New(context.Background(), cfg)
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}

		// New bootstraps the schema. The database is shared between
		// subtests, so start each one empty.
		truncateTables(t, cfg)
		return store
	})
}

func truncateTables(t *testing.T, cfg postgres.Config) {
	t.Helper()

	cfg.ApplyDefaults()
	pool, err := pgxpool.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		t.Fatalf("pgxpool.New() failed: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(context.Background(),
		`TRUNCATE TABLE dir_children, dir_listings, path_entries`)
	if err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
