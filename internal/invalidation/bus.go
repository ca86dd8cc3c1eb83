// Package invalidation broadcasts "the cache of user X is stale" to every
// interested consumer, inside this process and across client processes that
// share the same data directory.
package invalidation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/google/uuid"
)

// EventName identifies cache invalidation events.
const EventName = "memoryCacheInvalidated"

// Event tells consumers to drop their view of UserID's records.
type Event struct {
	Name   string    `json:"name"`
	UserID string    `json:"userId"`
	Origin string    `json:"origin"`           // bus instance that published
	Source string    `json:"source,omitempty"` // publishing component
	Nonce  string    `json:"nonce"`
	At     time.Time `json:"at"`

	// Remote is set on events that arrived from another process.
	Remote bool `json:"-"`
}

// Handler consumes events. Handlers run on the publisher's goroutine for
// local events and on the signal watcher's goroutine for remote ones; they
// must not block for long.
type Handler func(Event)

// Bus fans events out to subscribers.
type Bus struct {
	id     string
	signal *FileSignal
	logger logging.Logger
	clock  func() time.Time

	mu       sync.RWMutex
	handlers map[uint64]Handler
	next     uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithSignal enables cross-process delivery through s.
func WithSignal(s *FileSignal) Option {
	return func(b *Bus) { b.signal = s }
}

func WithLogger(l logging.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

func WithClock(clock func() time.Time) Option {
	return func(b *Bus) { b.clock = clock }
}

func New(opts ...Option) *Bus {
	b := &Bus{
		id:       uuid.NewString(),
		logger:   logging.Discard(),
		clock:    time.Now,
		handlers: make(map[uint64]Handler),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// ID identifies this bus instance on the cross-process channel.
func (b *Bus) ID() string { return b.id }

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish announces that userID's cache is stale.
func (b *Bus) Publish(ctx context.Context, userID string) error {
	return b.PublishFrom(ctx, "", userID)
}

// PublishFrom is Publish with the publishing component named, so that it can
// recognise and skip its own announcements.
func (b *Bus) PublishFrom(ctx context.Context, source, userID string) error {
	ev := Event{
		Name:   EventName,
		UserID: userID,
		Origin: b.id,
		Source: source,
		Nonce:  uuid.NewString(),
		At:     b.clock(),
	}

	b.deliver(ev)

	if b.signal == nil {
		return nil
	}
	if err := b.signal.Send(ev); err != nil {
		b.logger.Warn(ctx, "cross-process invalidation failed", "user_id", userID, "error", err)
		return fmt.Errorf("send invalidation signal: %w", err)
	}
	return nil
}

// Start begins delivering events published by other processes. It is a
// no-op without a signal.
func (b *Bus) Start() error {
	if b.signal == nil {
		return nil
	}
	return b.signal.Start(b.id, func(ev Event) {
		ev.Remote = true
		b.deliver(ev)
	})
}

// Close stops cross-process delivery.
func (b *Bus) Close() error {
	if b.signal == nil {
		return nil
	}
	return b.signal.Stop()
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}
