package store

import (
	"context"
	"sync"
	"time"

	"employee-access-service/internal/code"
	"employee-access-service/internal/identity/domain"
)

// MemoryStore is an in-memory Store implementation for tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	byPhone map[string]*domain.Identity
}

// NewMemoryStore returns an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byPhone: make(map[string]*domain.Identity)}
}

func (s *MemoryStore) Lookup(_ context.Context, phone string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *id
	return &cp, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, c string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.byPhone {
		if code.Equal(id.Code, c) {
			cp := *id
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Register(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPhone[identity.Phone]; ok {
		return ErrDuplicateIdentity
	}
	for _, id := range s.byPhone {
		if id.Code == identity.Code {
			return ErrDuplicateCode
		}
	}
	cp := *identity
	s.byPhone[identity.Phone] = &cp
	return nil
}

func (s *MemoryStore) TouchAccess(_ context.Context, phone string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return ErrNotFound
	}
	id.LastAccessAt = at
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Identity, 0, len(s.byPhone))
	for _, id := range s.byPhone {
		cp := *id
		out = append(out, &cp)
	}
	return out, nil
}
