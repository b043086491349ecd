package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/repositories"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Repositories groups the repositories sharing one connection pool.
type Repositories struct {
	db      *sqlx.DB
	Videos  *repositories.VideoRepository
	Cameras *repositories.CameraRepository
}

// NewDBConnection opens and pings the configured database.
func NewDBConnection(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.LogSafeDSN(), err)
	}

	if cfg.Driver == config.DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetimeSec > 0 {
			db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSec) * time.Second)
		}
	}
	return db, nil
}

// NewRepositories creates the repository set.
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		db:      db,
		Videos:  repositories.NewVideoRepository(db),
		Cameras: repositories.NewCameraRepository(db),
	}
}

// GetDB returns the underlying pool.
func (r *Repositories) GetDB() *sqlx.DB {
	return r.db
}

// Ping checks the database connection.
func (r *Repositories) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the pool.
func (r *Repositories) Close() error {
	return r.db.Close()
}
