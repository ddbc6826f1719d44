// Package handler exposes contact requests over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reunite/internal/contact/models"
	"reunite/internal/platform/middleware"
	dErrors "reunite/pkg/domain-errors"
	"reunite/pkg/platform/httputil"
)

// Service defines the contact request operations the handler exposes.
type Service interface {
	CreateRequest(ctx context.Context, caseID uuid.UUID, requesterID, requesterEmail, message string) (*models.ContactRequest, error)
	ApproveRequest(ctx context.Context, requestID uuid.UUID, reporterID string) (*models.ContactRequest, error)
	RejectRequest(ctx context.Context, requestID uuid.UUID, reporterID string) (*models.ContactRequest, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ContactRequest, error)
}

// Handler handles contact request endpoints.
type Handler struct {
	logger    *slog.Logger
	contacts  Service
	validator middleware.AdminTokenValidator
}

// New creates a new contact Handler.
func New(contacts Service, logger *slog.Logger, validator middleware.AdminTokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		contacts:  contacts,
		validator: validator,
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/contact-requests", h.handleCreate)
	r.Post("/contact-requests/{requestID}/approve", h.handleApprove)
	r.Post("/contact-requests/{requestID}/reject", h.handleReject)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.validator, h.logger))
		admin.Get("/admin/cases/{caseID}/contact-requests", h.handleListByCase)
	})
}

type requestResponse struct {
	ID             uuid.UUID  `json:"id"`
	CaseID         uuid.UUID  `json:"case_id"`
	RequesterID    string     `json:"requester_id,omitempty"`
	RequesterEmail string     `json:"requester_email"`
	Message        string     `json:"message,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
}

func toRequestResponse(r *models.ContactRequest) requestResponse {
	return requestResponse{
		ID:             r.ID,
		CaseID:         r.CaseID,
		RequesterID:    r.RequesterID,
		RequesterEmail: r.RequesterEmail,
		Message:        r.Message,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		RespondedAt:    r.RespondedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return
	}
	var body struct {
		RequesterID    string `json:"requester_id"`
		RequesterEmail string `json:"requester_email"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.contacts.CreateRequest(ctx, caseID, body.RequesterID, body.RequesterEmail, body.Message)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to create contact request",
				"request_id", middleware.GetRequestID(ctx), "case_id", caseID, "error", err.Error())
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReporterResponse(w, r, h.contacts.ApproveRequest)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReporterResponse(w, r, h.contacts.RejectRequest)
}

func (h *Handler) handleReporterResponse(w http.ResponseWriter, r *http.Request, respond func(context.Context, uuid.UUID, string) (*models.ContactRequest, error)) {
	ctx := r.Context()
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid contact request id"))
		return
	}
	var body struct {
		ReporterID string `json:"reporter_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ReporterID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reporter_id is required"))
		return
	}

	req, err := respond(ctx, requestID, body.ReporterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleListByCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return
	}
	requests, err := h.contacts.ListByCase(ctx, caseID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list contact requests",
			"request_id", middleware.GetRequestID(ctx), "case_id", caseID, "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"contact_requests": out})
}
