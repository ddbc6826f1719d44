// Package service manages contact requests. Their lifecycle is subordinate to
// the owning case: resolution cascades can terminate them in bulk.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	casemodels "reunite/internal/cases/models"
	"reunite/internal/contact/models"
	dErrors "reunite/pkg/domain-errors"
	audit "reunite/pkg/platform/audit"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.ContactRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error)
	Update(ctx context.Context, r *models.ContactRequest) error
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

// CaseReader resolves the owning case for validation and ownership checks.
type CaseReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*casemodels.Case, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates contact request operations.
type Service struct {
	store Store
	cases CaseReader

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// New constructs a Service.
func New(store Store, cases CaseReader, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cases:  cases,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest records a third party's request to reach a case's reporter.
// Anonymous requesters are allowed; the requester agent summary comes from the
// request context for the audit trail.
func (s *Service) CreateRequest(ctx context.Context, caseID uuid.UUID, requesterID, requesterEmail, message string) (*models.ContactRequest, error) {
	owning, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, s.wrapCaseErr(err)
	}
	if owning.IsCancelled() || owning.Status.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeConflict, "case no longer accepts contact requests (status %s)", owning.Status)
	}

	now := requestcontext.Now(ctx)
	req, err := models.NewContactRequest(caseID, requesterID, requesterEmail, message, requestcontext.UserAgent(ctx), now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create contact request")
	}
	s.emitAudit(ctx, audit.EventContactRequested, caseID, map[string]string{
		"request_id": req.ID.String(),
		"agent":      req.RequesterAgent,
	})
	return req, nil
}

// ApproveRequest lets the case's reporter share their contact details.
func (s *Service) ApproveRequest(ctx context.Context, requestID uuid.UUID, reporterID string) (*models.ContactRequest, error) {
	return s.resolve(ctx, requestID, reporterID, (*models.ContactRequest).Approve, audit.EventContactApproved)
}

// RejectRequest lets the case's reporter decline a contact request.
func (s *Service) RejectRequest(ctx context.Context, requestID uuid.UUID, reporterID string) (*models.ContactRequest, error) {
	return s.resolve(ctx, requestID, reporterID, (*models.ContactRequest).Reject, audit.EventContactRejected)
}

func (s *Service) resolve(ctx context.Context, requestID uuid.UUID, reporterID string, transition func(*models.ContactRequest, time.Time) error, event audit.AuditEvent) (*models.ContactRequest, error) {
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contact request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact request")
	}

	owning, err := s.cases.FindByID(ctx, req.CaseID)
	if err != nil {
		return nil, s.wrapCaseErr(err)
	}
	if owning.ReporterID != reporterID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the case reporter may respond to contact requests")
	}

	now := requestcontext.Now(ctx)
	if err := transition(req, now); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update contact request")
	}
	s.emitAudit(ctx, event, req.CaseID, map[string]string{"request_id": req.ID.String()})
	return req, nil
}

// ListByCase returns all contact requests for a case. Admin surface.
func (s *Service) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error) {
	requests, err := s.store.ListByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contact requests")
	}
	return requests, nil
}

// RejectPendingByCase force-rejects every pending request on the case. Called
// by the confirm and cancellation cascades; best-effort by contract there, so
// the error is returned for the caller to log.
func (s *Service) RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error) {
	count, err := s.store.RejectPendingByCase(ctx, caseID, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.emitAudit(ctx, audit.EventContactBatchRejected, caseID, map[string]string{
			"count": strconv.Itoa(count),
		})
	}
	return count, nil
}

func (s *Service) wrapCaseErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, caseID uuid.UUID, detail map[string]string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CaseID:    caseID,
		Action:    string(action),
		ActorID:   requestcontext.AdminID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action, "case_id", caseID, "error", err)
	}
}
