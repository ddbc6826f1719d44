// Package models defines the ContactRequest entity. A contact request's
// lifecycle is subordinate to its owning case: it never outlives or moves
// between cases.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "reunite/pkg/domain-errors"
)

// RequestStatus transitions only from pending to a terminal state.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ContactRequest is a third party's request to obtain a case reporter's
// contact details.
type ContactRequest struct {
	ID     uuid.UUID
	CaseID uuid.UUID
	// RequesterID is empty for anonymous requesters.
	RequesterID    string
	RequesterEmail string
	// RequesterAgent is a compact user-agent summary kept for audit.
	RequesterAgent string
	Message        string
	Status         RequestStatus
	CreatedAt      time.Time
	RespondedAt    *time.Time
}

// NewContactRequest constructs a pending request, validating invariants.
func NewContactRequest(caseID uuid.UUID, requesterID, requesterEmail, message, agent string, now time.Time) (*ContactRequest, error) {
	requesterEmail = strings.TrimSpace(requesterEmail)
	if caseID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "case reference is required")
	}
	if requesterEmail == "" || !strings.Contains(requesterEmail, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid requester email is required")
	}
	return &ContactRequest{
		ID:             uuid.New(),
		CaseID:         caseID,
		RequesterID:    requesterID,
		RequesterEmail: requesterEmail,
		RequesterAgent: agent,
		Message:        strings.TrimSpace(message),
		Status:         StatusPending,
		CreatedAt:      now,
	}, nil
}

// Approve transitions pending -> approved.
func (r *ContactRequest) Approve(now time.Time) error {
	return r.resolve(StatusApproved, now)
}

// Reject transitions pending -> rejected.
func (r *ContactRequest) Reject(now time.Time) error {
	return r.resolve(StatusRejected, now)
}

func (r *ContactRequest) resolve(status RequestStatus, now time.Time) error {
	if r.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeConflict, "contact request already resolved (status %s)", r.Status)
	}
	r.Status = status
	r.RespondedAt = &now
	return nil
}
