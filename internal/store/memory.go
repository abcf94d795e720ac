package store

import (
	"context"
	"sync"

	"oriontv/internal/media"
)

// Memory is an in-memory Store for tests and ephemeral sessions. It counts
// writes so throttle behavior can be asserted.
type Memory struct {
	mu      sync.Mutex
	records map[string]media.PlayRecord
	saves   int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]media.PlayRecord)}
}

func key(source, contentID string) string {
	return source + "\x00" + contentID
}

func (m *Memory) Get(_ context.Context, source, contentID string) (*media.PlayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key(source, contentID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) Save(_ context.Context, source, contentID string, rec media.PlayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key(source, contentID)] = rec
	m.saves++
	return nil
}

func (m *Memory) Remove(_ context.Context, source, contentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key(source, contentID))
	return nil
}

func (m *Memory) List(_ context.Context) ([]ListedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ListedRecord, 0, len(m.records))
	for k, rec := range m.records {
		src, id := splitKey(k)
		out = append(out, ListedRecord{Source: src, ContentID: id, Record: rec})
	}
	return out, nil
}

// Saves reports how many writes have reached the store.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func splitKey(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == 0 {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
