package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore. Served through RegisterServer
// it stands in for the remote service in tests and local runs.
type MemoryStore struct {
	clock func() time.Time

	mu      sync.Mutex
	records map[string]models.Record
	byKey   map[string]string // idempotency key -> record id
}

func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		clock:   clock,
		records: make(map[string]models.Record),
		byKey:   make(map[string]string),
	}
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Record, 0)
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, userID string, p models.CreatePayload) (models.Record, error) {
	if userID == "" {
		return models.Record{}, fmt.Errorf("%w: user id is required", common.ErrUnauthorized)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IdempotencyKey != "" {
		if id, ok := m.byKey[p.IdempotencyKey]; ok {
			return m.records[id], nil
		}
	}

	r := models.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     p.Title,
		Date:      p.Date,
		Text:      p.Text,
		Location:  p.Location,
		Images:    p.Images,
		Tags:      p.Tags,
		CreatedAt: m.clock().UTC(),
	}
	m.records[r.ID] = r
	if p.IdempotencyKey != "" {
		m.byKey[p.IdempotencyKey] = r.ID
	}
	return r, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, p models.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: memory %s", common.ErrNotFound, id)
	}
	m.records[id] = p.Apply(r, m.clock())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: memory %s", common.ErrNotFound, id)
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Owner returns the user a record belongs to.
func (m *MemoryStore) Owner(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r.UserID, ok
}
