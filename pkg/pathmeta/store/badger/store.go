// Package badger provides a BadgerDB-backed metadata store implementation.
//
// Entries and listings survive restarts; the store is suited for a single
// node that wants the cache to persist across process lifetimes. All
// operations run inside BadgerDB transactions, so each MetadataStore call is
// atomic.
package badger

import (
	"context"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/metacache/internal/logger"
	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Config holds configuration for the BadgerDB metadata store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps the whole database in memory. Useful for tests; data
	// does not survive Close.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites makes every commit fsync. Slower, but crash-safe.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// BadgerMetadataStore is a BadgerDB-backed implementation of
// pathmeta.MetadataStore.
type BadgerMetadataStore struct {
	pathmeta.Lifecycle

	cfg Config
	db  *badgerdb.DB
	log *slog.Logger
}

// New opens the database at cfg.Path and returns a store ready to be
// initialized.
func New(cfg Config) (*BadgerMetadataStore, error) {
	opts := badgerdb.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.NewBackingStoreError("open badger database", err)
	}

	return &BadgerMetadataStore{
		cfg: cfg,
		db:  db,
		log: logger.With(logger.KeyStore, "badger"),
	}, nil
}

// Initialize binds the store to the backing store identity.
func (s *BadgerMetadataStore) Initialize(ctx context.Context, id backing.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Bind(id); err != nil {
		return err
	}

	s.log.Debug("badger metadata store initialized",
		logger.KeyBacking, id.Scheme()+"://"+id.Authority(),
		"path", s.cfg.Path,
		"in_memory", s.cfg.InMemory,
	)
	return nil
}

// Close shuts down the database. A second Close is a no-op.
func (s *BadgerMetadataStore) Close() error {
	if !s.Shutdown() {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.NewBackingStoreError("close badger database", err)
	}

	s.log.Debug("badger metadata store closed")
	return nil
}

// AllowsMissing reports false: the store never discards entries on its own.
func (s *BadgerMetadataStore) AllowsMissing() bool {
	return false
}
