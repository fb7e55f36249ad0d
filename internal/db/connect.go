package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"github.com/sells-group/geocode-etl/internal/etlerr"
)

// OracleURL builds a go-ora connection URL for a service name.
func OracleURL(host string, port int, service, user, password string) string {
	return go_ora.BuildUrl(host, port, service, user, password, nil)
}

// OpenOracle opens and pings the source Oracle database.
func OpenOracle(ctx context.Context, host string, port int, service, user, password string) (*sql.DB, error) {
	return OpenSQL(ctx, "oracle", OracleURL(host, port, service, user, password))
}

// OpenSQL opens a database/sql handle and verifies it with a ping. A single
// connection is kept open; the run only ever has one cursor in flight.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, etlerr.Wrapf(etlerr.ErrConnection, err, "db: open %s", driver)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close() //nolint:errcheck
		return nil, etlerr.Wrapf(etlerr.ErrConnection, err, "db: ping %s", driver)
	}

	zap.L().Info("connected to source database", zap.String("driver", driver))
	return conn, nil
}

// ConnectPostgres creates a small pgx pool for the destination database and
// pings it. It never returns a nil pool without an error.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, etlerr.Wrap(etlerr.ErrConnection, err, "db: parse postgres config")
	}
	pgxCfg.MaxConns = 2
	pgxCfg.MinConns = 0
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, etlerr.Wrap(etlerr.ErrConnection, err, "db: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, etlerr.Wrap(etlerr.ErrConnection, err, "db: ping postgres")
	}

	zap.L().Info("connected to destination database",
		zap.String("host", pgxCfg.ConnConfig.Host),
		zap.String("database", pgxCfg.ConnConfig.Database),
	)
	return pool, nil
}
