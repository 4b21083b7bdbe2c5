package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/metacache/internal/logger"
	"github.com/marmos91/metacache/pkg/config"
	"github.com/marmos91/metacache/pkg/metrics"
	"github.com/marmos91/metacache/pkg/pathmeta"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// openStore loads the configuration and returns an initialized metadata
// store bound to the configured backing identity. The caller owns Close.
func openStore(ctx context.Context) (pathmeta.MetadataStore, *config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}

	if err := InitLogger(cfg); err != nil {
		return nil, nil, err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	store, err := config.CreateStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	id, err := config.CreateBacking(ctx, cfg.Backing)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	if err := store.Initialize(ctx, id); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	return store, cfg, nil
}
