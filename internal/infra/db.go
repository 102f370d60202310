// Package infra initializes external connections (Postgres, Redis).
package infra

import (
	"context"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideway/internal/logger"
)

// NewDB opens a pgx pool and applies pending migrations from migrationsDir.
// A missing migrations directory is tolerated so tests can point at a
// pre-provisioned database.
func NewDB(ctx context.Context, dsn, migrationsDir string, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if migrationsDir != "" {
		m, err := migrate.New("file://"+migrationsDir, dsn)
		if err != nil {
			log.Warn("migration init failed", logger.Error(err))
		} else if err := m.Up(); err != nil {
			if strings.Contains(err.Error(), "no change") {
				log.Info("no migrations to apply")
			} else {
				pool.Close()
				return nil, err
			}
		}
	}

	log.Info("postgres connected")
	return pool, nil
}
