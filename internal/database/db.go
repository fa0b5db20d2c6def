package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-api/internal/config"
	"go-api/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// New connects to Postgres and returns a Bun DB handle.
func New(dsn string, cfg *config.Config) (*bun.DB, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(60*time.Second),
		pgdriver.WithDialTimeout(15*time.Second),
		pgdriver.WithReadTimeout(60*time.Second),
		pgdriver.WithWriteTimeout(30*time.Second),
		// applied to every pooled connection, not just the first one
		pgdriver.WithConnParams(map[string]interface{}{
			"search_path":                         "app, public",
			"statement_timeout":                   "60s",
			"idle_in_transaction_session_timeout": "180s",
		}),
	)

	sqldb := sql.OpenDB(connector)
	db := Wrap(sqldb)

	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(10)
	sqldb.SetConnMaxLifetime(5 * time.Minute)
	sqldb.SetConnMaxIdleTime(10 * time.Minute)

	if cfg.BunDebug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Wrap builds a bun handle over an existing pool and registers the join models
// used by many-to-many relations.
func Wrap(sqldb *sql.DB) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	db.RegisterModel(
		(*models.EventCountry)(nil),
		(*models.EventDistrict)(nil),
		(*models.FieldReportCountry)(nil),
		(*models.FieldReportDistrict)(nil),
	)
	return db
}
