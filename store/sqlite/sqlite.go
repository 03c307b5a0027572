// Package sqlite persists HTTP records in a SQLite file so cached tiles survive
// restarts.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/unkn0wn-root/tilecache/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	// Path is a file path or DSN; ":memory:" works for tests.
	Path string

	// Now is used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Provider = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies
// migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps ":memory:" to a single shared database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}

	s := &Store{db: db, now: cfg.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT value, expires_at FROM http_cache WHERE key = ?`

	var (
		value   []byte
		expires int64
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expires != 0 && s.now().UnixNano() >= expires {
		_ = s.Del(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	const q = `INSERT INTO http_cache (key, value, expires_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`

	var expires int64
	if ttl > 0 {
		expires = s.now().Add(ttl).UnixNano()
	}
	if _, err := s.db.ExecContext(ctx, q, key, value, expires); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM http_cache WHERE key = ?`, key)
	return err
}

// Prune deletes expired records and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM http_cache WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}
