package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memojournal/internal/cache/migrations"
	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/dbx"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Open opens the SQLite cache database at path and applies migrations.
// Other processes may hold the same file open; writers wait on the lock.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations brings the cache schema up to date. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SQLiteStore implements Store on the cache table.
type SQLiteStore struct {
	db *sql.DB
	options
}

func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{db: db, options: buildOptions(opts)}
}

func (s *SQLiteStore) Read(ctx context.Context, userID string) (*Entry, bool) {
	e, err := s.get(ctx, s.db, userID)
	if err != nil {
		s.logger.Warn(ctx, "cache read failed, treating as miss", "user_id", userID, "error", err)
		return nil, false
	}
	return e, e != nil
}

// get returns (nil, nil) when there is no row.
func (s *SQLiteStore) get(ctx context.Context, q dbx.DBTX, userID string) (*Entry, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ?`, Key(userID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCacheCorrupted, err)
	}
	return &e, nil
}

func (s *SQLiteStore) Write(ctx context.Context, userID string, records []models.Memory) error {
	now := s.clock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		prev, err := s.get(ctx, tx, userID)
		if err != nil && !errors.Is(err, common.ErrCacheCorrupted) {
			return err
		}

		value, err := json.Marshal(Entry{Records: records, FetchedAt: nextFetchedAt(prev, now)})
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO cache (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, Key(userID), value)
		if err != nil {
			return fmt.Errorf("upsert cache entry: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, Key(userID)); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
