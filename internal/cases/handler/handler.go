// Package handler exposes the case lifecycle over HTTP. Submission, lookup,
// cancellation, and self-reported resolution are public; listing and
// verification decisions are admin-only.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reunite/internal/cases/models"
	"reunite/internal/cases/service"
	"reunite/internal/platform/middleware"
	dErrors "reunite/pkg/domain-errors"
	"reunite/pkg/platform/httputil"
	"reunite/pkg/requestcontext"
)

// Service defines the case operations the handler exposes.
type Service interface {
	CreateCase(ctx context.Context, req service.CreateCaseRequest) (*models.Case, error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
	ListCasesByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error)
	VerifyCase(ctx context.Context, id uuid.UUID, adminID string) (*models.Case, error)
	RejectCase(ctx context.Context, id uuid.UUID, adminID, reason string) (*models.Case, error)
	MarkFoundByReporter(ctx context.Context, id uuid.UUID, reporterID string) (*models.Case, error)
	CancelCase(ctx context.Context, id uuid.UUID, reporterID string) (*models.Case, error)
}

// Handler handles case endpoints.
type Handler struct {
	logger    *slog.Logger
	cases     Service
	validator middleware.AdminTokenValidator
}

// New creates a new case Handler.
func New(cases Service, logger *slog.Logger, validator middleware.AdminTokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		cases:     cases,
		validator: validator,
	}
}

// Register registers the case routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.handleCreate)
	r.Get("/cases/{caseID}", h.handleGet)
	r.Post("/cases/{caseID}/cancel", h.handleCancel)
	r.Post("/cases/{caseID}/found", h.handleMarkFound)

	r.Route("/admin/cases", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.validator, h.logger))
		admin.Get("/", h.handleList)
		admin.Post("/{caseID}/verify", h.handleVerify)
		admin.Post("/{caseID}/reject", h.handleReject)
	})
}

type createCaseRequest struct {
	Kind              string     `json:"kind"`
	FullName          string     `json:"full_name"`
	Age               *int       `json:"age,omitempty"`
	Gender            string     `json:"gender"`
	City              string     `json:"city"`
	Area              string     `json:"area,omitempty"`
	Description       string     `json:"description,omitempty"`
	LastSeenOrFoundOn *time.Time `json:"last_seen_or_found_on,omitempty"`
	ContactName       string     `json:"contact_name,omitempty"`
	ContactPhone      string     `json:"contact_phone,omitempty"`
	ContactEmail      string     `json:"contact_email,omitempty"`
	ReporterID        string     `json:"reporter_id"`
}

type caseResponse struct {
	ID                uuid.UUID  `json:"id"`
	Kind              string     `json:"kind"`
	Status            string     `json:"status"`
	FullName          string     `json:"full_name"`
	Age               *int       `json:"age,omitempty"`
	Gender            string     `json:"gender"`
	City              string     `json:"city"`
	Area              string     `json:"area,omitempty"`
	Description       string     `json:"description,omitempty"`
	LastSeenOrFoundOn *time.Time `json:"last_seen_or_found_on,omitempty"`
	VerifiedBy        *string    `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	MatchedWithCaseID *uuid.UUID `json:"matched_with_case_id,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toCaseResponse(c *models.Case) caseResponse {
	return caseResponse{
		ID:                c.ID,
		Kind:              string(c.Kind),
		Status:            string(c.Status),
		FullName:          c.FullName,
		Age:               c.Age,
		Gender:            string(c.Gender),
		City:              c.City,
		Area:              c.Area,
		Description:       c.Description,
		LastSeenOrFoundOn: c.LastSeenOrFoundOn,
		VerifiedBy:        c.VerifiedBy,
		VerifiedAt:        c.VerifiedAt,
		RejectionReason:   c.RejectionReason,
		MatchedWithCaseID: c.MatchedWithCaseID,
		CancelledAt:       c.CancelledAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.cases.CreateCase(ctx, service.CreateCaseRequest{
		Kind:              models.CaseKind(req.Kind),
		FullName:          req.FullName,
		Age:               req.Age,
		Gender:            models.Gender(req.Gender),
		City:              req.City,
		Area:              req.Area,
		Description:       req.Description,
		LastSeenOrFoundOn: req.LastSeenOrFoundOn,
		ContactName:       req.ContactName,
		ContactPhone:      req.ContactPhone,
		ContactEmail:      req.ContactEmail,
		ReporterID:        req.ReporterID,
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logError(ctx, "failed to create case", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.cases.GetCase(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := models.CaseStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPending
	}
	cases, err := h.cases.ListCasesByStatus(ctx, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]caseResponse, 0, len(cases))
	for _, c := range cases {
		out = append(out, toCaseResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": out})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	adminID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	c, err := h.cases.VerifyCase(ctx, caseID, adminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	adminID, ok := h.adminID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, err := h.cases.RejectCase(ctx, caseID, adminID, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleReporterAction(w, r, h.cases.CancelCase)
}

func (h *Handler) handleMarkFound(w http.ResponseWriter, r *http.Request) {
	h.handleReporterAction(w, r, h.cases.MarkFoundByReporter)
}

// handleReporterAction runs a reporter-owned mutation. The reporter reference
// arrives in the body and is trusted here; verifying it is the reporter's own
// token is the auth boundary's job.
func (h *Handler) handleReporterAction(w http.ResponseWriter, r *http.Request, action func(context.Context, uuid.UUID, string) (*models.Case, error)) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var body struct {
		ReporterID string `json:"reporter_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ReporterID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reporter_id is required"))
		return
	}
	c, err := action(ctx, caseID, body.ReporterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) adminID(w http.ResponseWriter, r *http.Request) (string, bool) {
	adminID := requestcontext.AdminID(r.Context())
	if adminID == "" {
		h.logger.ErrorContext(r.Context(), "admin id missing from context despite admin middleware",
			"request_id", middleware.GetRequestID(r.Context()))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return adminID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "request_id", middleware.GetRequestID(ctx), "error", err.Error())
	h.logger.ErrorContext(ctx, msg, args...)
}
