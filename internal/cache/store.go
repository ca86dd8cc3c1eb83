package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
)

// KeyPrefix namespaces cache keys.
const KeyPrefix = "memoriesCache_"

// DefaultTTL is the canonical freshness window for memory lists.
const DefaultTTL = 10 * time.Minute

// Entry is the cached record list of one user.
type Entry struct {
	Records   models.Memories `json:"records"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Store persists Entries keyed by user id.
type Store interface {
	// Read returns the entry for userID, or false when there is none or it
	// cannot be decoded.
	Read(ctx context.Context, userID string) (*Entry, bool)

	// Write replaces the entry for userID with records, stamped with now.
	Write(ctx context.Context, userID string, records []models.Memory) error

	// Clear removes the entry for userID. Clearing a missing entry is not an error.
	Clear(ctx context.Context, userID string) error
}

// Key returns the storage key of userID's entry.
func Key(userID string) string {
	return KeyPrefix + userID
}

// IsFresh reports whether e was fetched less than ttl before now.
func IsFresh(e *Entry, ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// nextFetchedAt keeps fetchedAt monotonic per user.
func nextFetchedAt(prev *Entry, now time.Time) time.Time {
	if prev != nil && prev.FetchedAt.After(now) {
		return prev.FetchedAt
	}
	return now
}

type options struct {
	clock  func() time.Time
	logger logging.Logger
}

// Option configures a Store implementation.
type Option func(*options)

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, logger: logging.Discard()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
