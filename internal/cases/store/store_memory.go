// Package store persists Case records. Both implementations return sentinel
// errors; services translate them into domain errors.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"reunite/internal/cases/models"
	"reunite/pkg/platform/sentinel"
)

// InMemoryStore keeps cases in a map. Used by unit tests and dev mode.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]models.Case
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cases: make(map[uuid.UUID]models.Case)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := c
	return &copied, nil
}

func (s *InMemoryStore) FindByKindAndStatus(_ context.Context, kind models.CaseKind, status models.CaseStatus) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Case
	for _, c := range s.cases {
		if c.Kind == kind && c.Status == status {
			copied := c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.CaseStatus) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Case
	for _, c := range s.cases {
		if c.Status == status {
			copied := c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.cases[c.ID] = *c
	return nil
}
