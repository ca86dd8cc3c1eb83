package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/logging"
)

const sessionTokenKey = "session_token"

// EventKind names a session lifecycle transition.
type EventKind string

const (
	SignedIn  EventKind = "signed-in"
	SignedOut EventKind = "signed-out"
)

type Event struct {
	Kind   EventKind
	UserID string
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Provider holds the current session. It is safe for concurrent use.
type Provider struct {
	store  TokenStore
	logger logging.Logger
	clock  func() time.Time

	mu        sync.RWMutex
	session   *Session
	listeners map[int]func(Event)
	nextID    int
}

type Option func(*Provider)

func WithLogger(l logging.Logger) Option { return func(p *Provider) { p.logger = l } }

func WithClock(clock func() time.Time) Option { return func(p *Provider) { p.clock = clock } }

// NewProvider returns a signed-out provider. store may be nil, in which case
// sessions live only in memory.
func NewProvider(store TokenStore, opts ...Option) *Provider {
	p := &Provider{
		store:     store,
		logger:    logging.Discard(),
		clock:     time.Now,
		listeners: make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Restore signs in with the persisted token, if any. A missing, malformed
// or expired token leaves the provider signed out without error.
func (p *Provider) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	raw, err := p.store.Get(ctx, sessionTokenKey)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	s, err := ParseToken(string(raw))
	if err != nil || s.Expired(p.clock()) {
		p.logger.Info(ctx, "discarding stored session", "error", err)
		return p.store.Delete(ctx, sessionTokenKey)
	}
	p.set(&s)
	return nil
}

// SignIn replaces the current session with token and persists it.
func (p *Provider) SignIn(ctx context.Context, token string) (Session, error) {
	s, err := ParseToken(token)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(p.clock()) {
		return Session{}, fmt.Errorf("%w: session expired at %s", common.ErrUnauthorized, s.ExpiresAt.Format(time.RFC3339))
	}

	if p.store != nil {
		if err := p.store.Set(ctx, sessionTokenKey, []byte(token)); err != nil {
			return Session{}, err
		}
	}

	if prev, ok := p.Current(); ok && prev.UserID != s.UserID {
		p.set(nil)
	}
	p.set(&s)
	p.logger.Info(ctx, "signed in", "user_id", s.UserID)
	return s, nil
}

// SignOut forgets the session. Signing out twice is a no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	if p.store != nil {
		if err := p.store.Delete(ctx, sessionTokenKey); err != nil {
			return err
		}
	}
	p.set(nil)
	return nil
}

// Current returns the active session.
func (p *Provider) Current() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return Session{}, false
	}
	return *p.session, true
}

// UserID returns the signed-in user or ErrUnauthorized.
func (p *Provider) UserID() (string, error) {
	s, ok := p.Current()
	if !ok {
		return "", fmt.Errorf("%w: not signed in", common.ErrUnauthorized)
	}
	return s.UserID, nil
}

// Token returns the raw token or "" when signed out.
func (p *Provider) Token() string {
	s, _ := p.Current()
	return s.Token
}

// Subscribe registers fn for session events and returns an unsubscribe func.
func (p *Provider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) set(s *Session) {
	p.mu.Lock()
	prev := p.session
	p.session = s

	var ev *Event
	switch {
	case s == nil && prev != nil:
		ev = &Event{Kind: SignedOut, UserID: prev.UserID}
	case s != nil && (prev == nil || prev.UserID != s.UserID):
		ev = &Event{Kind: SignedIn, UserID: s.UserID}
	}

	listeners := make([]func(Event), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	if ev == nil {
		return
	}
	for _, l := range listeners {
		l(*ev)
	}
}
