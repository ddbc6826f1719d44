// Package service owns the case lifecycle: submission, admin verification and
// rejection, self-reported resolution, and cancellation with its cascades.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reunite/internal/cases/cache"
	"reunite/internal/cases/models"
	dErrors "reunite/pkg/domain-errors"
	audit "reunite/pkg/platform/audit"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/platform/tx"
	"reunite/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	ListByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
}

// MatchInvalidator force-rejects pending matches touching a case. Implemented
// by the matching service; best-effort by contract.
type MatchInvalidator interface {
	InvalidateMatchesForCase(ctx context.Context, caseID uuid.UUID)
}

// ContactRequestCleaner force-rejects pending contact requests for a case.
type ContactRequestCleaner interface {
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CreateCaseRequest is a reporter submission.
type CreateCaseRequest struct {
	Kind              models.CaseKind
	FullName          string
	Age               *int
	Gender            models.Gender
	City              string
	Area              string
	Description       string
	LastSeenOrFoundOn *time.Time
	ContactName       string
	ContactPhone      string
	ContactEmail      string
	ReporterID        string
}

// Service orchestrates case lifecycle operations.
type Service struct {
	store Store
	cache cache.Cache

	matches  MatchInvalidator
	contacts ContactRequestCleaner

	logger         *slog.Logger
	auditPublisher AuditPublisher
	tx             tx.StoreTx
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMatchInvalidator(m MatchInvalidator) Option {
	return func(s *Service) { s.matches = m }
}

func WithContactCleaner(c ContactRequestCleaner) Option {
	return func(s *Service) { s.contacts = c }
}

func WithStoreTx(t tx.StoreTx) Option {
	return func(s *Service) { s.tx = t }
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tx:     tx.NewNoopStoreTx(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCase persists a reporter submission as a pending case.
func (s *Service) CreateCase(ctx context.Context, req CreateCaseRequest) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	c, err := models.NewCase(req.Kind, req.FullName, req.Age, req.Gender, req.City, req.ReporterID, now)
	if err != nil {
		return nil, err
	}
	c.Area = req.Area
	c.Description = req.Description
	c.LastSeenOrFoundOn = req.LastSeenOrFoundOn
	c.ContactName = req.ContactName
	c.ContactPhone = req.ContactPhone
	c.ContactEmail = req.ContactEmail

	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}
	s.emitAudit(ctx, audit.EventCaseCreated, c.ID, map[string]string{
		"kind": string(c.Kind),
	})
	return c, nil
}

// GetCase reads through the cache when one is configured.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	if s.cache != nil {
		if c, err := s.cache.Get(ctx, id); err == nil {
			return c, nil
		}
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapCaseErr(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, c); err != nil {
			s.logger.WarnContext(ctx, "failed to cache case", "case_id", id, "error", err)
		}
	}
	return c, nil
}

// ListCasesByStatus lists cases in the given status. Admin surface.
func (s *Service) ListCasesByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error) {
	switch status {
	case models.StatusPending, models.StatusVerified, models.StatusFound, models.StatusRejected:
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid case status")
	}
	cases, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// VerifyCase transitions pending -> verified.
func (s *Service) VerifyCase(ctx context.Context, id uuid.UUID, adminID string) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	var verified *models.Case
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return s.wrapCaseErr(err)
		}
		if err := c.Verify(adminID, now); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
		}
		verified = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	s.emitAudit(ctx, audit.EventCaseVerified, id, nil)
	return verified, nil
}

// RejectCase transitions pending -> rejected with a mandatory reason. A
// verified case cannot be rejected; rejection is a first-pass gate only.
func (s *Service) RejectCase(ctx context.Context, id uuid.UUID, adminID, reason string) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	var rejected *models.Case
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return s.wrapCaseErr(err)
		}
		if err := c.Reject(adminID, reason, now); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
		}
		rejected = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	s.emitAudit(ctx, audit.EventCaseRejected, id, map[string]string{"reason": reason})
	return rejected, nil
}

// MarkFoundByReporter resolves a case as found without a match. Only the
// reporting party may resolve this way; ownership is checked at the boundary,
// the reporter reference is trusted here.
func (s *Service) MarkFoundByReporter(ctx context.Context, id uuid.UUID, reporterID string) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	var resolved *models.Case
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return s.wrapCaseErr(err)
		}
		if c.ReporterID != reporterID {
			return dErrors.New(dErrors.CodeForbidden, "only the reporter may resolve this case")
		}
		if err := c.MarkFound(reporterID, now); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
		}
		resolved = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	s.emitAudit(ctx, audit.EventCaseFound, id, map[string]string{"resolved_by": "reporter"})

	// A resolved case can no longer be matched; stale pending matches are
	// cleaned up best-effort.
	if s.matches != nil {
		s.matches.InvalidateMatchesForCase(ctx, id)
	}
	return resolved, nil
}

// CancelCase stamps the cancellation time and cascades: pending matches and
// contact requests touching the case are force-rejected best-effort.
// Idempotent.
func (s *Service) CancelCase(ctx context.Context, id uuid.UUID, reporterID string) (*models.Case, error) {
	now := requestcontext.Now(ctx)
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapCaseErr(err)
	}
	if c.ReporterID != reporterID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporter may cancel this case")
	}
	if c.IsCancelled() {
		return c, nil
	}

	c.Cancel(now)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
	}

	s.invalidateCache(ctx, id)
	s.emitAudit(ctx, audit.EventCaseCancelled, id, nil)

	if s.matches != nil {
		s.matches.InvalidateMatchesForCase(ctx, id)
	}
	if s.contacts != nil {
		if _, err := s.contacts.RejectPendingByCase(ctx, id, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to reject pending contact requests on cancellation",
				"case_id", id, "error", err)
		}
	}
	return c, nil
}

func (s *Service) wrapCaseErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
}

func (s *Service) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate case cache", "case_id", id, "error", err)
	}
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
