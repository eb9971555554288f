package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/platform/memory"
	"github.com/phrazzld/reverie-api/internal/platform/mongodb"
	"github.com/phrazzld/reverie-api/internal/platform/postgres"
	"github.com/phrazzld/reverie-api/internal/store"
)

// setupEntryStore opens the configured storage backend. The returned cleanup
// function releases its connections and is never nil.
func setupEntryStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (store.EntryStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("postgres entry store ready")
		return postgres.NewPostgresEntryStore(db, logger), func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing database connection", "error", err)
			}
		}, nil

	case "mongo":
		client, err := mongodb.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		s := mongodb.NewMongoEntryStore(
			client.Database(cfg.MongoDatabase).Collection(mongodb.EntriesCollection),
			logger,
		)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = mongodb.Disconnect(client)
			return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		logger.Info("mongo entry store ready", "database", cfg.MongoDatabase)
		return s, func() {
			if err := mongodb.Disconnect(client); err != nil {
				logger.Error("error disconnecting from MongoDB", "error", err)
			}
		}, nil

	case "memory":
		logger.Warn("using in-memory entry store; entries are lost on restart")
		return memory.NewEntryStore(logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
