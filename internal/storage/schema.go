package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id BIGSERIAL PRIMARY KEY,
		movie_id VARCHAR(64) NOT NULL UNIQUE,
		title VARCHAR(255) NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		location VARCHAR(255) NOT NULL DEFAULT '',
		camera_id VARCHAR(64),
		base_url TEXT NOT NULL DEFAULT '',
		object_key VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos (created_at)`,
	`CREATE TABLE IF NOT EXISTS cameras (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		camera_id TEXT,
		base_url TEXT NOT NULL DEFAULT '',
		object_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos (created_at)`,
	`CREATE TABLE IF NOT EXISTS cameras (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	var stmts []string
	switch driver {
	case config.DriverPostgres:
		stmts = postgresSchema
	case config.DriverSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}
