// Package store persists ContactRequest records.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reunite/internal/contact/models"
	"reunite/pkg/platform/sentinel"
)

// InMemoryStore keeps contact requests in a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]models.ContactRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[uuid.UUID]models.ContactRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.ContactRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[r.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[r.ID] = *r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := r
	return &copied, nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ContactRequest
	for _, r := range s.requests {
		if r.CaseID == caseID {
			copied := r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListPendingByCase(_ context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ContactRequest
	for _, r := range s.requests {
		if r.CaseID == caseID && r.Status == models.StatusPending {
			copied := r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, r *models.ContactRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[r.ID] = *r
	return nil
}

// RejectPendingByCase force-rejects every pending request on the case and
// returns how many were touched. Idempotent: already-resolved requests are
// untouched.
func (s *InMemoryStore) RejectPendingByCase(_ context.Context, caseID uuid.UUID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, r := range s.requests {
		if r.CaseID == caseID && r.Status == models.StatusPending {
			r.Status = models.StatusRejected
			t := now
			r.RespondedAt = &t
			s.requests[id] = r
			count++
		}
	}
	return count, nil
}
