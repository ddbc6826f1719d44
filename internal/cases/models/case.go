// Package models defines the Case entity and its lifecycle invariants.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "reunite/pkg/domain-errors"
)

// CaseKind distinguishes missing-person reports from found-person reports.
type CaseKind string

const (
	KindMissing CaseKind = "missing"
	KindFound   CaseKind = "found"
)

// Opposite returns the counterpart kind used for candidate generation.
func (k CaseKind) Opposite() CaseKind {
	if k == KindMissing {
		return KindFound
	}
	return KindMissing
}

// IsValid checks the kind against the supported enum values.
func (k CaseKind) IsValid() bool {
	return k == KindMissing || k == KindFound
}

// CaseStatus is the verification/resolution state of a case. Status moves
// forward only: pending -> verified -> {found | rejected}, with found also
// reachable directly from pending via self-reported resolution. Cancellation
// is an independent axis (CancelledAt), not a status.
type CaseStatus string

const (
	StatusPending  CaseStatus = "pending"
	StatusVerified CaseStatus = "verified"
	StatusFound    CaseStatus = "found"
	StatusRejected CaseStatus = "rejected"
)

// IsTerminal reports whether no further status transition is allowed.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusFound || s == StatusRejected
}

// Gender values must compare exactly equal for two cases to be matchable.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Case is a missing-person or found-person report.
type Case struct {
	ID          uuid.UUID
	Kind        CaseKind
	Status      CaseStatus
	FullName    string
	Age         *int
	Gender      Gender
	City        string
	Area        string
	Description string
	// LastSeenOrFoundOn is the last-seen date for missing cases and the
	// found date for found cases.
	LastSeenOrFoundOn *time.Time
	ContactName       string
	ContactPhone      string
	ContactEmail      string
	ReporterID        string
	VerifiedBy        *string
	VerifiedAt        *time.Time
	RejectionReason   *string
	// MatchedWithCaseID is set once, symmetrically, on match confirmation
	// and never changes afterwards.
	MatchedWithCaseID *uuid.UUID
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewCase constructs a pending case from a reporter submission, validating
// invariants.
func NewCase(kind CaseKind, fullName string, age *int, gender Gender, city string, reporterID string, now time.Time) (*Case, error) {
	fullName = strings.TrimSpace(fullName)
	city = strings.TrimSpace(city)
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "case kind must be missing or found")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !gender.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid gender")
	}
	if city == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "city is required")
	}
	if age != nil && (*age < 0 || *age > 130) {
		return nil, dErrors.New(dErrors.CodeValidation, "age out of range")
	}
	if reporterID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reporter reference is required")
	}
	return &Case{
		ID:         uuid.New(),
		Kind:       kind,
		Status:     StatusPending,
		FullName:   fullName,
		Age:        age,
		Gender:     gender,
		City:       city,
		ReporterID: reporterID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsCancelled reports whether the case has been cancelled by its reporter.
// Checked separately wherever status is checked.
func (c *Case) IsCancelled() bool {
	return c.CancelledAt != nil
}

// IsMatched reports whether the case was resolved through a confirmed match.
func (c *Case) IsMatched() bool {
	return c.MatchedWithCaseID != nil
}

// Verify transitions pending -> verified. Terminal and already-verified
// states yield a conflict naming the current status.
func (c *Case) Verify(adminID string, now time.Time) error {
	if c.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeConflict, "case cannot be verified (status %s)", c.Status)
	}
	c.Status = StatusVerified
	c.VerifiedBy = &adminID
	c.VerifiedAt = &now
	c.UpdatedAt = now
	return nil
}

// Reject transitions pending -> rejected with a mandatory reason. A verified
// case cannot be rejected: rejection is a first-pass gate, not a reversal of
// verification.
func (c *Case) Reject(adminID, reason string, now time.Time) error {
	if reason = strings.TrimSpace(reason); reason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	if c.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeConflict, "case cannot be rejected (status %s)", c.Status)
	}
	c.Status = StatusRejected
	c.VerifiedBy = &adminID
	c.VerifiedAt = &now
	c.RejectionReason = &reason
	c.UpdatedAt = now
	return nil
}

// MarkFound resolves the case as found. Reached from pending (self-reported)
// or verified (match confirmation).
func (c *Case) MarkFound(actorID string, now time.Time) error {
	if c.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeConflict, "case already resolved (status %s)", c.Status)
	}
	c.Status = StatusFound
	c.VerifiedBy = &actorID
	c.VerifiedAt = &now
	c.UpdatedAt = now
	return nil
}

// LinkMatch records the counterpart case on match confirmation. The link is
// immutable once set.
func (c *Case) LinkMatch(counterpartID uuid.UUID, now time.Time) error {
	if c.MatchedWithCaseID != nil {
		if *c.MatchedWithCaseID == counterpartID {
			return nil
		}
		return dErrors.New(dErrors.CodeConflict, "case is already matched with another case")
	}
	c.MatchedWithCaseID = &counterpartID
	c.UpdatedAt = now
	return nil
}

// Cancel stamps the cancellation time. Idempotent; independent of status.
func (c *Case) Cancel(now time.Time) {
	if c.CancelledAt == nil {
		c.CancelledAt = &now
		c.UpdatedAt = now
	}
}
