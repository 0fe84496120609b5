// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// The catalog admin only reads from the database: the role and role_acl
// tables that back per-entity permissions.  Entity records themselves are
// owned by the catalog REST API.
//
// Public entry points:
//
//	Open(ctx, dsn)                          – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//
// Both helpers ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open returns a *sqlx.DB with 10 max open, 2 idle, and a 30-minute
// connection lifetime.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, 10, 2)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return db, nil
}
