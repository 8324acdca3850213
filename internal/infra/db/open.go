// Package db selects the configured SQL backend.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/regtech-advisor/internal/config"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/mysql"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/postgres"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlite"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"
)

// Open connects to the database named by cfg.Database.Driver and applies the
// schema when migrate is set (always for sqlite, which starts empty).
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, error) {
	var (
		conn    *sql.DB
		dialect sqlstore.Dialect
		err     error
	)
	migrate := cfg.Database.Migrate
	switch cfg.Database.Driver {
	case "mysql":
		conn, err = mysql.Connect(ctx, cfg.MySQLDSN())
		dialect = mysql.Dialect
	case "postgres":
		conn, err = postgres.Connect(ctx, cfg.PostgresDSN())
		dialect = postgres.Dialect
	case "sqlite":
		conn, err = sqlite.Connect(ctx, cfg.SQLiteDSN())
		dialect = sqlite.Dialect
		migrate = true
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, sqlstore.Dialect{}, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if migrate {
		if err := sqlstore.Migrate(ctx, conn, dialect); err != nil {
			_ = conn.Close()
			return nil, sqlstore.Dialect{}, fmt.Errorf("%s migrate: %w", cfg.Database.Driver, err)
		}
	}
	return conn, dialect, nil
}
