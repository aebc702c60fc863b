package session

import (
	"context"
	"sync"
)

// Store is the durable client-side storage behind the session identity and
// the per-step checkout form drafts. It survives process restarts when backed
// by Redis; tests and single-process development use the in-memory variant.
type Store interface {
	// LoadToken returns the persisted session token, or "" if none exists.
	LoadToken(ctx context.Context) (string, error)

	// SaveToken persists the session token, replacing any previous one.
	SaveToken(ctx context.Context, token string) error

	// DeleteToken removes the persisted session token.
	DeleteToken(ctx context.Context) error

	// SaveDraft persists the serialized form values for a checkout step.
	SaveDraft(ctx context.Context, step string, data []byte) error

	// LoadDraft returns the serialized form values for a checkout step, or
	// nil if no draft exists.
	LoadDraft(ctx context.Context, step string) ([]byte, error)

	// DeleteDrafts removes all step drafts.
	DeleteDrafts(ctx context.Context) error
}

// MemoryStore is an in-process Store for tests and development.
type MemoryStore struct {
	mu     sync.Mutex
	token  string
	drafts map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string][]byte)}
}

func (s *MemoryStore) LoadToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) SaveToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) DeleteToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryStore) SaveDraft(ctx context.Context, step string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.drafts[step] = cp
	return nil
}

func (s *MemoryStore) LoadDraft(ctx context.Context, step string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.drafts[step]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) DeleteDrafts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = make(map[string][]byte)
	return nil
}
