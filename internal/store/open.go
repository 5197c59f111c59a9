// Package store selects and opens the configured catalog store.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/pokecatalog/internal/config"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/store/memory"
	"github.com/JonMunkholm/pokecatalog/internal/store/postgres"
)

// Open returns the store named by cfg.Store.Driver and a function that
// releases it. For postgres, pending migrations are applied when
// cfg.Store.AutoMigrate is set.
func Open(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("connected to database", "name", databaseName(cfg.Database.URL))

		if cfg.Store.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.New(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
