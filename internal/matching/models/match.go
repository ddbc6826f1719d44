// Package models defines the CaseMatch entity pairing one missing case with
// one found case.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus transitions only from pending to a terminal state.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusConfirmed MatchStatus = "confirmed"
	StatusRejected  MatchStatus = "rejected"
)

// CaseMatch is a proposed pairing between a missing case and a found case.
// MissingCaseID always points at a case of kind missing and FoundCaseID at a
// case of kind found, regardless of which side triggered generation.
type CaseMatch struct {
	ID            uuid.UUID
	MissingCaseID uuid.UUID
	FoundCaseID   uuid.UUID
	// Score is the 0-100 compatibility score at generation time.
	Score  int
	Status MatchStatus
	// ResolvedBy and ResolvedAt record the admin decision, for confirmations
	// and rejections alike.
	ResolvedBy *string
	ResolvedAt *time.Time
	CreatedAt  time.Time
}

// NewCaseMatch constructs a pending match.
func NewCaseMatch(missingCaseID, foundCaseID uuid.UUID, score int, now time.Time) *CaseMatch {
	return &CaseMatch{
		ID:            uuid.New(),
		MissingCaseID: missingCaseID,
		FoundCaseID:   foundCaseID,
		Score:         score,
		Status:        StatusPending,
		CreatedAt:     now,
	}
}

// References reports whether the match touches the given case on either side.
func (m *CaseMatch) References(caseID uuid.UUID) bool {
	return m.MissingCaseID == caseID || m.FoundCaseID == caseID
}
