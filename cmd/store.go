package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-disagg/internal/db"
	"github.com/sells-group/census-disagg/internal/store"
)

// initStore opens the configured run store. The pool is non-nil only for the
// postgres driver and is shared with the assignment sink; callers close it
// after the store. With the none driver both results are nil.
func initStore(ctx context.Context) (store.Store, *pgxpool.Pool, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil, nil
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "disagg.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
