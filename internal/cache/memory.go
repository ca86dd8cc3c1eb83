package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/models"
)

// MemoryStore keeps encoded entries in a map. Entries are stored as JSON so
// it behaves like the persisted store, decoding failures included.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), options: buildOptions(opts)}
}

func (m *MemoryStore) Read(ctx context.Context, userID string) (*Entry, bool) {
	m.mu.Lock()
	raw, ok := m.data[Key(userID)]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	e, err := decode(raw)
	if err != nil {
		m.logger.Warn(ctx, "cache read failed, treating as miss", "user_id", userID, "error", err)
		return nil, false
	}
	return e, true
}

func (m *MemoryStore) Write(ctx context.Context, userID string, records []models.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev *Entry
	if raw, ok := m.data[Key(userID)]; ok {
		prev, _ = decode(raw)
	}

	value, err := json.Marshal(Entry{Records: records, FetchedAt: nextFetchedAt(prev, m.clock())})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	m.data[Key(userID)] = value
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.data, Key(userID))
	m.mu.Unlock()
	return nil
}

// Raw returns the stored bytes for userID.
func (m *MemoryStore) Raw(userID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[Key(userID)]
	return raw, ok
}

func decode(raw []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCacheCorrupted, err)
	}
	return &e, nil
}
