package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/backing/s3"
	"github.com/marmos91/metacache/pkg/metrics"
	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/store/badger"
	"github.com/marmos91/metacache/pkg/pathmeta/store/instrumented"
	"github.com/marmos91/metacache/pkg/pathmeta/store/memory"
	"github.com/marmos91/metacache/pkg/pathmeta/store/null"
	"github.com/marmos91/metacache/pkg/pathmeta/store/postgres"
)

// CreateStore creates a metadata store instance from configuration.
//
// The returned store is not yet initialized; callers bind it to a backing
// identity with Initialize. When metrics are enabled the store is wrapped
// with operation instrumentation.
func CreateStore(ctx context.Context, cfg *Config) (pathmeta.MetadataStore, error) {
	store, err := createMetadataStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	return instrumented.Wrap(store, metrics.NewStoreMetrics(cfg.Store.Type)), nil
}

// createMetadataStore creates a single metadata store instance.
func createMetadataStore(ctx context.Context, cfg StoreConfig) (pathmeta.MetadataStore, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(cfg)
	case "badger":
		return createBadgerStore(cfg)
	case "postgres":
		return createPostgresStore(ctx, cfg)
	case "null":
		return null.New(), nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// createMemoryStore creates an in-memory metadata store.
func createMemoryStore(cfg StoreConfig) (pathmeta.MetadataStore, error) {
	// Decode memory-specific configuration
	var memoryCfg memory.Config
	if err := mapstructure.Decode(cfg.Memory, &memoryCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}

	return memory.New(memoryCfg), nil
}

// createBadgerStore creates a BadgerDB metadata store.
func createBadgerStore(cfg StoreConfig) (pathmeta.MetadataStore, error) {
	// Decode BadgerDB-specific configuration
	var badgerCfg badger.Config
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	if badgerCfg.Path == "" && !badgerCfg.InMemory {
		return nil, fmt.Errorf("badger store requires path to be set")
	}

	store, err := badger.New(badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return store, nil
}

// createPostgresStore creates a PostgreSQL metadata store.
func createPostgresStore(ctx context.Context, cfg StoreConfig) (pathmeta.MetadataStore, error) {
	// Decode PostgreSQL-specific configuration
	var pgCfg postgres.Config
	if err := mapstructure.Decode(cfg.Postgres, &pgCfg); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	store, err := postgres.New(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres metadata store: %w", err)
	}

	return store, nil
}

// CreateBacking creates a backing store identity from configuration.
//
// The s3 flavor returns a *s3.Backing, which also implements directory
// listing for cache priming; use CreateS3Backing when the lister is needed.
func CreateBacking(ctx context.Context, cfg BackingConfig) (backing.Identity, error) {
	switch cfg.Type {
	case "static", "":
		if cfg.Authority == "" {
			return nil, fmt.Errorf("static backing requires authority to be set")
		}
		return backing.Static{URIScheme: cfg.Scheme, URIAuthority: cfg.Authority}, nil
	case "s3":
		return CreateS3Backing(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown backing type: %q", cfg.Type)
	}
}

// CreateS3Backing creates an S3 backing with a live client.
func CreateS3Backing(ctx context.Context, cfg BackingConfig) (*s3.Backing, error) {
	// Decode S3-specific configuration
	var s3Cfg s3.Config
	if err := mapstructure.Decode(cfg.S3, &s3Cfg); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	if s3Cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backing requires bucket to be set")
	}
	if s3Cfg.Scheme == "" {
		s3Cfg.Scheme = cfg.Scheme
	}

	return s3.NewFromConfig(ctx, s3Cfg)
}
