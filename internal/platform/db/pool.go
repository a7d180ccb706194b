package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Dialect selects placeholder syntax and connection handling.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrUnsupportedDSN is returned for DSNs whose scheme has no driver.
var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// DB is a database handle together with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// Close closes the handle and, for postgres, the underlying pool.
func (d *DB) Close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// ParseDSN reports the dialect of dsn and the driver-level connection
// string. postgres:// and postgresql:// select pgx; sqlite:// or a bare
// path selects sqlite.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.Contains(dsn, "://"):
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedDSN, dsn)
	default:
		return DialectSQLite, dsn, nil
	}
}

// Open connects to dsn and pings it.
func Open(ctx context.Context, dsn string) (*DB, error) {
	dialect, conn, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if dialect == DialectPostgres {
		pool, err := NewPool(ctx, conn, 4, 0)
		if err != nil {
			return nil, err
		}
		return &DB{DB: stdlib.OpenDBFromPool(pool), Dialect: dialect, pool: pool}, nil
	}

	if dir := filepath.Dir(conn); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", conn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Rebind rewrites ? placeholders to $N for postgres. Queries must not
// contain literal question marks.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
