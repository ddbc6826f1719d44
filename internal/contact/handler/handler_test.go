package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	casemodels "reunite/internal/cases/models"
	casestore "reunite/internal/cases/store"
	"reunite/internal/contact/service"
	"reunite/internal/contact/store"
)

const adminToken = "admin-test-token"

type staticValidator struct{}

func (staticValidator) ValidateAdminToken(token string) (string, error) {
	if token != adminToken {
		return "", errors.New("unknown admin token")
	}
	return "A1", nil
}

func newEnv(t *testing.T) (http.Handler, *casemodels.Case) {
	t.Helper()
	cases := casestore.NewInMemoryStore()
	requests := store.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	age := 30
	owning, err := casemodels.NewCase(casemodels.KindMissing, "Ali", &age, casemodels.GenderMale, "Lahore", "reporter-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to build case: %v", err)
	}
	owning.Status = casemodels.StatusVerified
	if err := cases.Create(context.Background(), owning); err != nil {
		t.Fatalf("failed to seed case: %v", err)
	}

	svc := service.New(requests, cases, service.WithLogger(logger))
	h := New(svc, logger, staticValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return r, owning
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createRequest(t *testing.T, router http.Handler, caseID uuid.UUID) uuid.UUID {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/cases/"+caseID.String()+"/contact-requests", map[string]string{
		"requester_email": "friend@example.com",
		"message":         "I think I saw him",
	}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating contact request, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "pending" {
		t.Fatalf("expected pending, got %q", resp.Status)
	}
	return resp.ID
}

func TestCreateContactRequest(t *testing.T) {
	router, owning := newEnv(t)
	createRequest(t, router, owning.ID)
}

func TestCreateContactRequest_InvalidEmail(t *testing.T) {
	router, owning := newEnv(t)
	rec := doJSON(t, router, http.MethodPost, "/cases/"+owning.ID.String()+"/contact-requests", map[string]string{
		"requester_email": "nope",
	}, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}
}

func TestApproveRejectFlow(t *testing.T) {
	router, owning := newEnv(t)
	reqID := createRequest(t, router, owning.ID)

	rec := doJSON(t, router, http.MethodPost, "/contact-requests/"+reqID.String()+"/approve",
		map[string]string{"reporter_id": "stranger"}, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-reporter, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/contact-requests/"+reqID.String()+"/approve",
		map[string]string{"reporter_id": "reporter-1"}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/contact-requests/"+reqID.String()+"/reject",
		map[string]string{"reporter_id": "reporter-1"}, false)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 re-resolving request, got %d", rec.Code)
	}
}

func TestAdminListContactRequests(t *testing.T) {
	router, owning := newEnv(t)
	createRequest(t, router, owning.ID)
	createRequest(t, router, owning.ID)

	rec := doJSON(t, router, http.MethodGet, "/admin/cases/"+owning.ID.String()+"/contact-requests", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/admin/cases/"+owning.ID.String()+"/contact-requests", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing requests, got %d", rec.Code)
	}
	var resp struct {
		ContactRequests []json.RawMessage `json:"contact_requests"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(resp.ContactRequests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(resp.ContactRequests))
	}
}
