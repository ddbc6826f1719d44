// Package service implements candidate generation and match resolution. It
// owns every write to CaseMatch rows; cases and contact requests are touched
// only through the confirm and invalidation cascades defined here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	casemodels "reunite/internal/cases/models"
	matchmetrics "reunite/internal/matching/metrics"
	"reunite/internal/matching/models"
	"reunite/internal/matching/score"
	dErrors "reunite/pkg/domain-errors"
	audit "reunite/pkg/platform/audit"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/platform/tx"
	"reunite/pkg/requestcontext"
)

const (
	// DefaultMinScore is the generation threshold: pairs scoring below it are
	// never materialized.
	DefaultMinScore = 70

	// DefaultBatchConcurrency bounds concurrent per-case generation in
	// GenerateForAllVerified.
	DefaultBatchConcurrency = 4
)

var tracer = otel.Tracer("reunite/internal/matching")

type CaseStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*casemodels.Case, error)
	FindByKindAndStatus(ctx context.Context, kind casemodels.CaseKind, status casemodels.CaseStatus) ([]*casemodels.Case, error)
	Update(ctx context.Context, c *casemodels.Case) error
}

type MatchStore interface {
	CreateIfPairAvailable(ctx context.Context, m *models.CaseMatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CaseMatch, error)
	ListPending(ctx context.Context) ([]*models.CaseMatch, error)
	ResolveIfPending(ctx context.Context, id uuid.UUID, status models.MatchStatus, adminID string, now time.Time) (*models.CaseMatch, error)
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

// ContactRequestCleaner force-rejects pending contact requests during the
// confirm cascade.
type ContactRequestCleaner interface {
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, now time.Time) (int, error)
}

// Notifier delivers the reunification notice to a case's reporter.
type Notifier interface {
	MatchConfirmed(ctx context.Context, ownCase, counterpart *casemodels.Case) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the matching engine.
type Service struct {
	cases    CaseStore
	matches  MatchStore
	contacts ContactRequestCleaner

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *matchmetrics.Metrics
	notifier       Notifier
	tx             tx.StoreTx

	minScore         int
	batchConcurrency int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *matchmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithStoreTx(t tx.StoreTx) Option {
	return func(s *Service) { s.tx = t }
}

// WithMinScore overrides the generation threshold.
func WithMinScore(threshold int) Option {
	return func(s *Service) { s.minScore = threshold }
}

// WithBatchConcurrency bounds concurrent generation in GenerateForAllVerified.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New constructs a Service.
func New(cases CaseStore, matches MatchStore, contacts ContactRequestCleaner, opts ...Option) *Service {
	s := &Service{
		cases:            cases,
		matches:          matches,
		contacts:         contacts,
		logger:           slog.Default(),
		tx:               tx.NewNoopStoreTx(),
		minScore:         DefaultMinScore,
		batchConcurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateMatches scores the source case against every verified case of the
// opposite kind and materializes pending matches at or above the threshold.
// Non-verified sources yield an empty result without error; only a missing
// source is an error.
func (s *Service) GenerateMatches(ctx context.Context, caseID uuid.UUID) ([]*models.CaseMatch, error) {
	ctx, span := tracer.Start(ctx, "matching.GenerateMatches")
	defer span.End()
	start := time.Now()

	source, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	if source.Status != casemodels.StatusVerified {
		return nil, nil
	}

	candidates, err := s.cases.FindByKindAndStatus(ctx, source.Kind.Opposite(), casemodels.StatusVerified)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate cases")
	}

	now := requestcontext.Now(ctx)
	var created []*models.CaseMatch
	for _, candidate := range candidates {
		// A concurrently cancelled source is a per-candidate no-op, not an
		// error; stale matches are corrected by the cancellation cascade.
		if source.IsCancelled() {
			continue
		}
		if candidate.IsMatched() || candidate.IsCancelled() {
			continue
		}

		missing, found := orient(source, candidate)
		pairScore := score.Score(missing, found)
		if pairScore < s.minScore {
			continue
		}

		// Pair dedup lives in the store: an unordered pair already covered by a
		// pending match surfaces as ErrDuplicatePair and is skipped. The check
		// and the insert share the transaction.
		match := models.NewCaseMatch(missing.ID, found.ID, pairScore, now)
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			return s.matches.CreateIfPairAvailable(txCtx, match)
		})
		if errors.Is(err, sentinel.ErrDuplicatePair) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create match")
		}
		created = append(created, match)
		s.emitAudit(ctx, audit.EventMatchCreated, missing.ID, map[string]string{
			"match_id":      match.ID.String(),
			"found_case_id": found.ID.String(),
			"score":         strconv.Itoa(pairScore),
		})
	}

	s.metrics.IncrementGenerated(string(source.Kind), len(created))
	s.metrics.ObserveGenerateLatency(time.Since(start))
	return created, nil
}

// GenerateForAllVerified runs GenerateMatches for every verified missing case
// with bounded concurrency and returns the total number of matches created.
// Missing-side iteration is sufficient: every pair has a missing member.
func (s *Service) GenerateForAllVerified(ctx context.Context) (int, error) {
	sources, err := s.cases.FindByKindAndStatus(ctx, casemodels.KindMissing, casemodels.StatusVerified)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verified cases")
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for _, source := range sources {
		g.Go(func() error {
			created, err := s.GenerateMatches(gctx, source.ID)
			if err != nil {
				return err
			}
			total.Add(int64(len(created)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}

// ListPendingMatches returns pending matches sorted by score then recency,
// excluding matches whose linked cases have been cancelled underneath them.
func (s *Service) ListPendingMatches(ctx context.Context) ([]*models.CaseMatch, error) {
	pending, err := s.matches.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending matches")
	}

	out := make([]*models.CaseMatch, 0, len(pending))
	for _, m := range pending {
		missing, err := s.cases.FindByID(ctx, m.MissingCaseID)
		if err != nil {
			s.logger.ErrorContext(ctx, "skipping match with unresolvable missing case",
				"match_id", m.ID, "case_id", m.MissingCaseID, "error", err)
			continue
		}
		found, err := s.cases.FindByID(ctx, m.FoundCaseID)
		if err != nil {
			s.logger.ErrorContext(ctx, "skipping match with unresolvable found case",
				"match_id", m.ID, "case_id", m.FoundCaseID, "error", err)
			continue
		}
		if missing.IsCancelled() || found.IsCancelled() {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMatch returns a match by id.
func (s *Service) GetMatch(ctx context.Context, matchID uuid.UUID) (*models.CaseMatch, error) {
	m, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	return m, nil
}

// ConfirmMatch resolves a pending match as confirmed and cascades: both cases
// are linked symmetrically and marked found inside one transaction with the
// match claim, then the cases' other pending matches are invalidated and
// contact-request cleanup and reporter notification run best-effort after
// commit.
func (s *Service) ConfirmMatch(ctx context.Context, matchID uuid.UUID, adminID string) (*models.CaseMatch, error) {
	ctx, span := tracer.Start(ctx, "matching.ConfirmMatch")
	defer span.End()
	start := time.Now()

	now := requestcontext.Now(ctx)
	var (
		confirmed      *models.CaseMatch
		missing, found *casemodels.Case
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Claim first: the conditional update makes concurrent confirmations
		// single-winner before any case row is touched.
		m, err := s.matches.ResolveIfPending(txCtx, matchID, models.StatusConfirmed, adminID, now)
		if err != nil {
			return s.resolveClaimErr(txCtx, matchID, err)
		}

		missing, err = s.loadCase(txCtx, m.MissingCaseID)
		if err != nil {
			return err
		}
		found, err = s.loadCase(txCtx, m.FoundCaseID)
		if err != nil {
			return err
		}

		if err := missing.LinkMatch(found.ID, now); err != nil {
			return err
		}
		if err := found.LinkMatch(missing.ID, now); err != nil {
			return err
		}
		if err := missing.MarkFound(adminID, now); err != nil {
			return err
		}
		if err := found.MarkFound(adminID, now); err != nil {
			return err
		}
		if err := s.cases.Update(txCtx, missing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update missing case")
		}
		if err := s.cases.Update(txCtx, found); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update found case")
		}

		confirmed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.EventMatchConfirmed, missing.ID, map[string]string{
		"match_id":      confirmed.ID.String(),
		"found_case_id": found.ID.String(),
	})
	s.metrics.IncrementResolved("confirmed")
	s.metrics.ObserveConfirmLatency(time.Since(start))

	// Everything past the commit is best-effort: failures are logged and never
	// alter the confirmed result. The confirmed match is already terminal, so
	// invalidation only touches the losing pending matches.
	s.InvalidateMatchesForCase(ctx, missing.ID)
	s.InvalidateMatchesForCase(ctx, found.ID)
	s.cleanupContactRequests(ctx, missing.ID, now)
	s.cleanupContactRequests(ctx, found.ID, now)
	s.notifyReporter(ctx, missing, found)
	s.notifyReporter(ctx, found, missing)

	return confirmed, nil
}

// RejectMatch resolves a pending match as rejected. The linked cases are
// checked for existence but never mutated; rejection is non-destructive.
func (s *Service) RejectMatch(ctx context.Context, matchID uuid.UUID, adminID string) (*models.CaseMatch, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadCase(ctx, m.MissingCaseID); err != nil {
		return nil, err
	}
	if _, err := s.loadCase(ctx, m.FoundCaseID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	rejected, err := s.matches.ResolveIfPending(ctx, matchID, models.StatusRejected, adminID, now)
	if err != nil {
		return nil, s.resolveClaimErr(ctx, matchID, err)
	}

	s.emitAudit(ctx, audit.EventMatchRejected, rejected.MissingCaseID, map[string]string{
		"match_id": rejected.ID.String(),
	})
	s.metrics.IncrementResolved("rejected")
	return rejected, nil
}

// InvalidateMatchesForCase force-rejects every pending match touching the
// case. Called from the cancellation cascade; idempotent and best-effort, so
// it never returns an error.
func (s *Service) InvalidateMatchesForCase(ctx context.Context, caseID uuid.UUID) {
	now := requestcontext.Now(ctx)
	count, err := s.matches.RejectPendingByCase(ctx, caseID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to invalidate pending matches",
			"case_id", caseID, "error", err)
		return
	}
	if count == 0 {
		return
	}
	s.emitAudit(ctx, audit.EventMatchInvalidated, caseID, map[string]string{
		"count": strconv.Itoa(count),
	})
	s.metrics.AddInvalidated(count)
}

func (s *Service) loadCase(ctx context.Context, id uuid.UUID) (*casemodels.Case, error) {
	c, err := s.cases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "linked case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load linked case")
	}
	return c, nil
}

// resolveClaimErr translates a failed pending->terminal claim, naming the
// match's current status in the conflict message.
func (s *Service) resolveClaimErr(ctx context.Context, matchID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "match not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		status := "resolved"
		if m, findErr := s.matches.FindByID(ctx, matchID); findErr == nil {
			status = string(m.Status)
		}
		return dErrors.Newf(dErrors.CodeConflict, "match already processed (status %s)", status)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve match")
	}
}

func (s *Service) cleanupContactRequests(ctx context.Context, caseID uuid.UUID, now time.Time) {
	if s.contacts == nil {
		return
	}
	if _, err := s.contacts.RejectPendingByCase(ctx, caseID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to reject pending contact requests",
			"case_id", caseID, "error", err)
	}
}

func (s *Service) notifyReporter(ctx context.Context, ownCase, counterpart *casemodels.Case) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.MatchConfirmed(ctx, ownCase, counterpart); err != nil {
		s.logger.ErrorContext(ctx, "failed to notify reporter of confirmed match",
			"case_id", ownCase.ID, "counterpart_case_id", counterpart.ID, "error", err)
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

// orient assigns missing and found sides by each case's actual kind, never by
// argument order.
func orient(a, b *casemodels.Case) (missing, found *casemodels.Case) {
	if a.Kind == casemodels.KindMissing {
		return a, b
	}
	return b, a
}
