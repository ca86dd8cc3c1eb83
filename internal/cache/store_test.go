package cache

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// stores runs f against every Store implementation.
func stores(t *testing.T, f func(t *testing.T, s Store, clock *fakeClock)) {
	t.Run("sqlite", func(t *testing.T) {
		clock := newClock()
		f(t, NewSQLiteStore(openTestDB(t), WithClock(clock.Now)), clock)
	})
	t.Run("memory", func(t *testing.T) {
		clock := newClock()
		f(t, NewMemoryStore(WithClock(clock.Now)), clock)
	})
}

func sample() []models.Memory {
	return []models.Memory{
		models.Record{ID: "r1", UserID: "u1", Title: "Đà Lạt Trip", Date: models.NewDate(2024, time.March, 10)},
		models.ProvisionalRecord{Record: models.Record{ID: "temp-1", UserID: "u1", Title: "Sa Pa"}, IdempotencyKey: "k"},
	}
}

func TestStore_WriteReadClear(t *testing.T) {
	stores(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()

		_, ok := s.Read(ctx, "u1")
		require.False(t, ok, "cold cache")

		require.NoError(t, s.Write(ctx, "u1", sample()))

		e, ok := s.Read(ctx, "u1")
		require.True(t, ok)
		assert.True(t, e.FetchedAt.Equal(clock.Now()))
		if diff := cmp.Diff(models.Memories(sample()), e.Records); diff != "" {
			t.Fatalf("records mismatch (-want +got):\n%s", diff)
		}

		_, ok = s.Read(ctx, "u2")
		require.False(t, ok, "partitions are per user")

		require.NoError(t, s.Clear(ctx, "u1"))
		_, ok = s.Read(ctx, "u1")
		require.False(t, ok)

		require.NoError(t, s.Clear(ctx, "u1"), "clearing twice is fine")
	})
}

func TestStore_WriteReplacesAndKeepsFetchedAtMonotonic(t *testing.T) {
	stores(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		first := clock.Now()

		require.NoError(t, s.Write(ctx, "u1", sample()))

		clock.Advance(-time.Hour)
		require.NoError(t, s.Write(ctx, "u1", sample()[:1]))

		e, ok := s.Read(ctx, "u1")
		require.True(t, ok)
		assert.Len(t, e.Records, 1, "write replaces prior content")
		assert.True(t, e.FetchedAt.Equal(first), "fetchedAt must not go backwards")

		clock.Advance(2 * time.Hour)
		require.NoError(t, s.Write(ctx, "u1", nil))
		e, _ = s.Read(ctx, "u1")
		assert.True(t, e.FetchedAt.Equal(clock.Now()))
	})
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	assert.False(t, IsFresh(nil, DefaultTTL, now))
	assert.True(t, IsFresh(&Entry{FetchedAt: now}, DefaultTTL, now))
	assert.True(t, IsFresh(&Entry{FetchedAt: now.Add(-DefaultTTL + time.Nanosecond)}, DefaultTTL, now))
	assert.False(t, IsFresh(&Entry{FetchedAt: now.Add(-DefaultTTL)}, DefaultTTL, now))
	assert.True(t, IsFresh(&Entry{FetchedAt: now.Add(-4 * time.Minute)}, 5*time.Minute, now))
}

func TestSQLiteStore_CorruptValueIsAMiss(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO cache (key, value) VALUES (?, ?)`, Key("u1"), []byte(`{"records": [oops`))
	require.NoError(t, err)

	_, ok := s.Read(ctx, "u1")
	require.False(t, ok)

	require.NoError(t, s.Write(ctx, "u1", sample()), "a corrupt entry is overwritten")
	e, ok := s.Read(ctx, "u1")
	require.True(t, ok)
	assert.Len(t, e.Records, 2)
}

func TestMemoryStore_CorruptValueIsAMiss(t *testing.T) {
	s := NewMemoryStore()
	s.data[Key("u1")] = []byte("not json")

	_, ok := s.Read(context.Background(), "u1")
	require.False(t, ok)
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLiteStore(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM cache`).WithArgs(Key("u1")).WillReturnError(errors.New("disk I/O error"))
	_, ok := s.Read(ctx, "u1")
	require.False(t, ok, "read errors degrade to a miss")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM cache`).WithArgs(Key("u1")).WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(`INSERT INTO cache`).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	err = s.Write(ctx, "u1", sample())
	require.Error(t, err)
	require.Contains(t, err.Error(), "upsert cache entry")

	mock.ExpectExec(`DELETE FROM cache`).WithArgs(Key("u1")).WillReturnError(errors.New("readonly"))
	require.Error(t, s.Clear(ctx, "u1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache'`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "memoriesCache_u1", Key("u1"))
}
