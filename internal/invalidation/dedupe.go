package invalidation

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultWindow is how long repeated invalidations for one user are folded
// into the first one.
const DefaultWindow = 500 * time.Millisecond

// Deduper lets a consumer act on at most one invalidation per user within a
// window. Keys expire through the cache TTL.
type Deduper struct {
	mu     sync.Mutex
	seen   *ristretto.Cache
	window time.Duration

	// overflow holds windows whose key ristretto refused to admit.
	overflow map[string]time.Time
	set      func(userID string, ttl time.Duration) bool
	now      func() time.Time
}

func NewDeduper(window time.Duration) (*Deduper, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	d := &Deduper{seen: c, window: window, overflow: make(map[string]time.Time), now: time.Now}
	d.set = func(userID string, ttl time.Duration) bool {
		return d.seen.SetWithTTL(userID, struct{}{}, 1, ttl)
	}
	return d, nil
}

// Allow reports whether an invalidation for userID should be acted on, and
// opens a new window if so.
func (d *Deduper) Allow(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if until, ok := d.overflow[userID]; ok {
		if now.Before(until) {
			return false
		}
		delete(d.overflow, userID)
	}
	if _, ok := d.seen.Get(userID); ok {
		return false
	}

	// Sets are dropped when ristretto's buffers are full; retry once after
	// draining them, then keep the window locally.
	ok := d.set(userID, d.window)
	if !ok {
		d.seen.Wait()
		ok = d.set(userID, d.window)
	}
	d.seen.Wait()
	if !ok {
		d.overflow[userID] = now.Add(d.window)
	}
	return true
}

func (d *Deduper) Close() {
	d.seen.Close()
}

// Debounce wraps h so that it only sees the first event per user per window.
func Debounce(d *Deduper, h Handler) Handler {
	return func(ev Event) {
		if d.Allow(ev.UserID) {
			h(ev)
		}
	}
}
