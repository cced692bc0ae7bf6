// Package db opens the configured source of truth.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/config"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/memory"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/mysql"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/postgres"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/sqlstore"
)

// Handle owns the store and its connection pool. SQL is nil for the memory driver.
type Handle struct {
	Store store.Store
	SQL   *sqlstore.Store
	db    *sql.DB
}

func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Handle, error) {
	pool := mysql.Pool{
		MaxOpen:     cfg.Database.MaxOpenConns,
		MaxIdle:     cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.ConnMaxLifetime(),
	}
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		return &Handle{Store: memory.New()}, nil
	case "postgres":
		conn, err = postgres.Connect(ctx, cfg.PostgresDSN(), pool)
	default:
		conn, err = mysql.Connect(ctx, cfg.MySQLDSN(), pool)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	dialect, _ := sqlstore.ParseDialect(cfg.Database.Driver)
	st := sqlstore.New(conn, dialect, log)
	return &Handle{Store: st, SQL: st, db: conn}, nil
}

// Migrate applies the schema; the memory driver needs none.
func (h *Handle) Migrate(ctx context.Context) error {
	if h.SQL == nil {
		return nil
	}
	return h.SQL.Migrate(ctx)
}

func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
