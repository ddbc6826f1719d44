// Package audit defines the audit event model and the store contract that
// sinks implement. Domain services emit events best-effort: an audit failure
// is logged and never fails the operation that produced it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	CaseID    uuid.UUID
	Action    string
	// ActorID is the admin or reporter who performed the action, when known.
	ActorID string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// Detail carries action-specific context (scores, reasons, counterparts).
	Detail map[string]string
}

// AuditEvent names every action the system records.
type AuditEvent string

const (
	// Case lifecycle events
	EventCaseCreated   AuditEvent = "case_created"
	EventCaseVerified  AuditEvent = "case_verified"
	EventCaseRejected  AuditEvent = "case_rejected"
	EventCaseCancelled AuditEvent = "case_cancelled"
	EventCaseFound     AuditEvent = "case_found"

	// Contact request events
	EventContactRequested     AuditEvent = "contact_requested"
	EventContactApproved      AuditEvent = "contact_approved"
	EventContactRejected      AuditEvent = "contact_rejected"
	EventContactBatchRejected AuditEvent = "contact_batch_rejected"

	// Match events
	EventMatchCreated     AuditEvent = "match_created"
	EventMatchConfirmed   AuditEvent = "match_confirmed"
	EventMatchRejected    AuditEvent = "match_rejected"
	EventMatchInvalidated AuditEvent = "match_invalidated"
)

// Store persists audit events. Kafka-backed sinks treat Append as produce.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]Event, error)
}
