// Package postgres provides a PostgreSQL-backed metadata store
// implementation.
//
// The cache state is shared: multiple processes pointing at the same
// database observe one consistent namespace. Every MetadataStore call runs
// in a single transaction.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/metacache/internal/logger"
	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// schema is applied on New. Idempotent, so concurrent processes can race on
// startup without harm.
//
// Timestamps are epoch nanoseconds (NULL = zero time): TIMESTAMPTZ only
// holds microseconds and would not round-trip PathEntry fields exactly.
const schema = `
CREATE TABLE IF NOT EXISTS path_entries (
	path_key       TEXT PRIMARY KEY,
	is_dir         BOOLEAN NOT NULL,
	length         BIGINT NOT NULL,
	block_size     BIGINT NOT NULL,
	replication    INTEGER NOT NULL,
	access_time_ns BIGINT,
	mod_time_ns    BIGINT,
	owner_name     TEXT NOT NULL,
	group_name     TEXT NOT NULL,
	mode           BIGINT NOT NULL,
	tombstoned     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS dir_listings (
	dir_key       TEXT PRIMARY KEY,
	authoritative BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS dir_children (
	dir_key   TEXT NOT NULL REFERENCES dir_listings(dir_key) ON DELETE CASCADE,
	child_key TEXT NOT NULL,
	PRIMARY KEY (dir_key, child_key)
);

CREATE INDEX IF NOT EXISTS dir_children_child_key_idx ON dir_children(child_key);
`

// PostgresMetadataStore is a PostgreSQL-backed implementation of
// pathmeta.MetadataStore.
type PostgresMetadataStore struct {
	pathmeta.Lifecycle

	pool *pgxpool.Pool
	cfg  Config
	log  *slog.Logger
}

// New creates the connection pool, bootstraps the schema, and returns a
// store ready to be initialized.
func New(ctx context.Context, cfg Config) (*PostgresMetadataStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.With(logger.KeyStore, "postgres")

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", cfg.QueryTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewBackingStoreError("create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewBackingStoreError("ping database", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errors.NewBackingStoreError("bootstrap schema", err)
	}

	log.Debug("postgres connection pool created",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_conns", cfg.MaxConns,
	)

	return &PostgresMetadataStore{
		pool: pool,
		cfg:  cfg,
		log:  log,
	}, nil
}

// Initialize binds the store to the backing store identity.
func (s *PostgresMetadataStore) Initialize(ctx context.Context, id backing.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Bind(id); err != nil {
		return err
	}

	s.log.Debug("postgres metadata store initialized",
		logger.KeyBacking, id.Scheme()+"://"+id.Authority(),
	)
	return nil
}

// Close shuts down the connection pool. A second Close is a no-op.
func (s *PostgresMetadataStore) Close() error {
	if !s.Shutdown() {
		return nil
	}

	s.pool.Close()
	s.log.Debug("postgres metadata store closed")
	return nil
}

// AllowsMissing reports false: the store never discards entries on its own.
func (s *PostgresMetadataStore) AllowsMissing() bool {
	return false
}
