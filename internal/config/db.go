package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// PoolOptions tunes database/sql. Zero values keep the driver defaults,
// except ConnMaxIdleTime which falls back to five minutes.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

const dbPingTimeout = 3 * time.Second

var errEmptyDSN = errors.New("config: empty database DSN")

// NewDB opens the pgx pool and refuses to return it until a ping succeeds.
func NewDB(ctx context.Context, dsn string, pool PoolOptions, debug bool, lg zerolog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, errEmptyDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	applyPool(db, pool)

	pctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if debug {
		logServerInfo(pctx, db, lg)
	}
	return db, nil
}

func applyPool(db *sql.DB, pool PoolOptions) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	idle := pool.ConnMaxIdleTime
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	db.SetConnMaxIdleTime(idle)
}

// logServerInfo is best effort; a failed lookup only leaves fields empty.
func logServerInfo(ctx context.Context, db *sql.DB, lg zerolog.Logger) {
	var user, name, version string
	err := db.QueryRowContext(ctx,
		"SELECT current_user, current_database(), current_setting('server_version')",
	).Scan(&user, &name, &version)
	if err != nil {
		lg.Debug().Err(err).Msg("db server info unavailable")
		return
	}
	lg.Debug().Str("user", user).Str("db", name).Str("version", version).Msg("db connected")
}
