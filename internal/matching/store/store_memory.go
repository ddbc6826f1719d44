// Package store persists CaseMatch records. The pending -> terminal
// transition is a store-level check-and-set so concurrent resolutions have
// exactly one winner on every backend.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reunite/internal/matching/models"
	"reunite/pkg/platform/sentinel"
)

// InMemoryStore keeps matches in a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]models.CaseMatch
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{matches: make(map[uuid.UUID]models.CaseMatch)}
}

func (s *InMemoryStore) Create(_ context.Context, m *models.CaseMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[m.ID]; exists {
		return sentinel.ErrConflict
	}
	s.matches[m.ID] = *m
	return nil
}

// CreateIfPairAvailable creates the match unless a pending match already
// covers the unordered pair, in which case it returns
// sentinel.ErrDuplicatePair and stores nothing.
func (s *InMemoryStore) CreateIfPairAvailable(_ context.Context, m *models.CaseMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[m.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.matches {
		if existing.Status != models.StatusPending {
			continue
		}
		if (existing.MissingCaseID == m.MissingCaseID && existing.FoundCaseID == m.FoundCaseID) ||
			(existing.MissingCaseID == m.FoundCaseID && existing.FoundCaseID == m.MissingCaseID) {
			return sentinel.ErrDuplicatePair
		}
	}
	s.matches[m.ID] = *m
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.CaseMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := m
	return &copied, nil
}

// ListPending returns pending matches sorted by score descending, then
// creation time descending.
func (s *InMemoryStore) ListPending(_ context.Context) ([]*models.CaseMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CaseMatch
	for _, m := range s.matches {
		if m.Status == models.StatusPending {
			copied := m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ExistsPendingForPair reports whether a pending match already covers the
// unordered pair, in either orientation.
func (s *InMemoryStore) ExistsPendingForPair(_ context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.matches {
		if m.Status != models.StatusPending {
			continue
		}
		if (m.MissingCaseID == a && m.FoundCaseID == b) || (m.MissingCaseID == b && m.FoundCaseID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListPendingByCase(_ context.Context, caseID uuid.UUID) ([]*models.CaseMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CaseMatch
	for _, m := range s.matches {
		if m.Status == models.StatusPending && m.References(caseID) {
			copied := m
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ResolveIfPending atomically transitions the match to the given terminal
// status if and only if it is still pending. Returns sentinel.ErrInvalidState
// when another resolution won the race.
func (s *InMemoryStore) ResolveIfPending(_ context.Context, id uuid.UUID, status models.MatchStatus, adminID string, now time.Time) (*models.CaseMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if m.Status != models.StatusPending {
		return nil, sentinel.ErrInvalidState
	}
	m.Status = status
	m.ResolvedBy = &adminID
	t := now
	m.ResolvedAt = &t
	s.matches[id] = m
	copied := m
	return &copied, nil
}

// RejectPendingByCase force-rejects every pending match touching the case.
// Idempotent: already-terminal matches are untouched.
func (s *InMemoryStore) RejectPendingByCase(_ context.Context, caseID uuid.UUID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, m := range s.matches {
		if m.Status == models.StatusPending && m.References(caseID) {
			m.Status = models.StatusRejected
			t := now
			m.ResolvedAt = &t
			s.matches[id] = m
			count++
		}
	}
	return count, nil
}
