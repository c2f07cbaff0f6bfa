package captcha

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-instance Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Entry
	tokens   map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Entry),
		tokens:   make(map[string]Entry),
	}
}

func (m *MemoryStore) PutSession(_ context.Context, id string, e Entry, _ time.Duration) error {
	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) TakeSession(_ context.Context, id string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	return e, ok, nil
}

func (m *MemoryStore) PutToken(_ context.Context, token string, e Entry, _ time.Duration) error {
	m.mu.Lock()
	m.tokens[token] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) TakeToken(_ context.Context, token string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tokens[token]
	if ok {
		delete(m.tokens, token)
	}
	return e, ok, nil
}

func (m *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if e.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	for tok, e := range m.tokens {
		if e.Expired(now) {
			delete(m.tokens, tok)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	clear(m.sessions)
	clear(m.tokens)
	m.mu.Unlock()
	return nil
}

