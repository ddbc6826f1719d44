// Package handler exposes the matching engine over HTTP. All routes are
// admin-only: generation and resolution are administrator actions.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reunite/internal/matching/models"
	"reunite/internal/platform/middleware"
	dErrors "reunite/pkg/domain-errors"
	"reunite/pkg/platform/httputil"
	"reunite/pkg/requestcontext"
)

// Service defines the matching operations the handler exposes.
type Service interface {
	GenerateMatches(ctx context.Context, caseID uuid.UUID) ([]*models.CaseMatch, error)
	GenerateForAllVerified(ctx context.Context) (int, error)
	ListPendingMatches(ctx context.Context) ([]*models.CaseMatch, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*models.CaseMatch, error)
	ConfirmMatch(ctx context.Context, matchID uuid.UUID, adminID string) (*models.CaseMatch, error)
	RejectMatch(ctx context.Context, matchID uuid.UUID, adminID string) (*models.CaseMatch, error)
}

// Handler handles match endpoints.
type Handler struct {
	logger    *slog.Logger
	matching  Service
	validator middleware.AdminTokenValidator
}

// New creates a new matching Handler.
func New(matching Service, logger *slog.Logger, validator middleware.AdminTokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		matching:  matching,
		validator: validator,
	}
}

// Register registers the matching routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.validator, h.logger))
		admin.Post("/admin/cases/{caseID}/matches", h.handleGenerate)
		admin.Post("/admin/matches/generate", h.handleGenerateAll)
		admin.Get("/admin/matches/pending", h.handleListPending)
		admin.Get("/admin/matches/{matchID}", h.handleGet)
		admin.Post("/admin/matches/{matchID}/confirm", h.handleConfirm)
		admin.Post("/admin/matches/{matchID}/reject", h.handleReject)
	})
}

type matchResponse struct {
	ID            uuid.UUID  `json:"id"`
	MissingCaseID uuid.UUID  `json:"missing_case_id"`
	FoundCaseID   uuid.UUID  `json:"found_case_id"`
	Score         int        `json:"score"`
	Status        string     `json:"status"`
	ResolvedBy    *string    `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toMatchResponse(m *models.CaseMatch) matchResponse {
	return matchResponse{
		ID:            m.ID,
		MissingCaseID: m.MissingCaseID,
		FoundCaseID:   m.FoundCaseID,
		Score:         m.Score,
		Status:        string(m.Status),
		ResolvedBy:    m.ResolvedBy,
		ResolvedAt:    m.ResolvedAt,
		CreatedAt:     m.CreatedAt,
	}
}

func toMatchResponses(matches []*models.CaseMatch) []matchResponse {
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, toMatchResponse(m))
	}
	return out
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return
	}

	created, err := h.matching.GenerateMatches(ctx, caseID)
	if err != nil {
		h.logError(ctx, "failed to generate matches", err, "case_id", caseID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"matches": toMatchResponses(created),
	})
}

func (h *Handler) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.matching.GenerateForAllVerified(ctx)
	if err != nil {
		h.logError(ctx, "failed to generate matches for all verified cases", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"created": total})
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pending, err := h.matching.ListPendingMatches(ctx)
	if err != nil {
		h.logError(ctx, "failed to list pending matches", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"matches": toMatchResponses(pending),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid match id"))
		return
	}
	m, err := h.matching.GetMatch(ctx, matchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMatchResponse(m))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.matching.ConfirmMatch)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.matching.RejectMatch)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, resolve func(context.Context, uuid.UUID, string) (*models.CaseMatch, error)) {
	ctx := r.Context()
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid match id"))
		return
	}

	adminID := requestcontext.AdminID(ctx)
	if adminID == "" {
		// RequireAdmin guarantees this; treat absence as a wiring fault.
		h.logger.ErrorContext(ctx, "admin id missing from context despite admin middleware",
			"request_id", middleware.GetRequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	m, err := resolve(ctx, matchID, adminID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) || dErrors.Is(err, dErrors.CodeConflict) {
			httputil.WriteError(w, err)
			return
		}
		h.logError(ctx, "failed to resolve match", err, "match_id", matchID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMatchResponse(m))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "request_id", middleware.GetRequestID(ctx), "error", err.Error())
	h.logger.ErrorContext(ctx, msg, args...)
}
