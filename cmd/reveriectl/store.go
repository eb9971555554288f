package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/reverie-api/internal/platform/mongodb"
	"github.com/phrazzld/reverie-api/internal/platform/postgres"
	"github.com/phrazzld/reverie-api/internal/store"
	"github.com/spf13/viper"
)

// openPostgres connects to the configured Postgres database.
func openPostgres(ctx context.Context) (*sql.DB, error) {
	url := viper.GetString("database.url")
	if url == "" {
		return nil, fmt.Errorf("database URL is required (--database-url or REVERIE_DATABASE_URL)")
	}
	return postgres.Open(ctx, url, 2, 1)
}

// openEntryStore opens the configured entry store. The cleanup function is
// never nil.
func openEntryStore(ctx context.Context) (store.EntryStore, func(), error) {
	switch driver := viper.GetString("database.driver"); driver {
	case "postgres":
		db, err := openPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPostgresEntryStore(db, log), func() { _ = db.Close() }, nil

	case "mongo":
		client, err := mongodb.Connect(ctx, viper.GetString("database.url"))
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(viper.GetString("database.mongo_database")).Collection(mongodb.EntriesCollection)
		return mongodb.NewMongoEntryStore(col, log), func() { _ = mongodb.Disconnect(client) }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
