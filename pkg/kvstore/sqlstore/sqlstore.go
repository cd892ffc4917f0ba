// Package sqlstore keeps client key-value state in a SQL table. SQLite is
// the local default; PostgreSQL lets several devices share one profile.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	tableName = "client_kv"
)

// ErrUnavailable marks failures where the database could not be reached or
// was locked, as opposed to bad queries.
var ErrUnavailable = errors.New("sqlstore: database unavailable")

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose keeps its dialect and filesystem in package globals.
var migrateMu sync.Mutex

type Config struct {
	Driver string
	DSN    string
}

type Store struct {
	db  *sqlx.DB
	qb  sq.StatementBuilderType
	log *zap.Logger
}

var _ kvstore.Store = (*Store)(nil)

func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create session dir")
		}
	}
	return Open(ctx, Config{
		Driver: DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?_busy_timeout=5000", path),
	}, log)
}

func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	var (
		placeholder sq.PlaceholderFormat
		dialect     string
	)
	switch cfg.Driver {
	case DriverSQLite:
		placeholder, dialect = sq.Question, "sqlite3"
	case DriverPostgres:
		placeholder, dialect = sq.Dollar, "postgres"
	default:
		return nil, errors.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, classify(err, "connect")
	}
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := migrate(db.DB, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		log: log.Named("sqlstore"),
	}, nil
}

func migrate(db *sql.DB, dialect string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "goose dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "goose up")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	query, args, err := s.qb.Select("value").
		From(tableName).
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", err
	}

	var value string
	if err := s.db.GetContext(ctx, &value, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", kvstore.ErrNotFound
		}
		s.log.Error("Get", zap.String("q", query), zap.Error(err))
		return "", classify(err, "get")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	query, args, err := s.qb.Insert(tableName).
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("Set", zap.String("q", query), zap.String("key", key), zap.Error(err))
		return classify(err, "set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := s.qb.Delete(tableName).
		Where(sq.Eq{"key": keys}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return classify(err, "delete")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return errors.Wrapf(ErrUnavailable, "%s: %s", op, pgErr.Message)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return errors.Wrapf(ErrUnavailable, "%s: %s", op, liteErr.Error())
	}
	return errors.Wrap(err, op)
}
