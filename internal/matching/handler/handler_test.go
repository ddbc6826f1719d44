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
	contactstore "reunite/internal/contact/store"
	"reunite/internal/matching/service"
	matchstore "reunite/internal/matching/store"
)

const adminToken = "admin-test-token"

// staticValidator accepts exactly one token. Auth internals live outside the
// core, so handler tests stub the boundary.
type staticValidator struct{}

func (staticValidator) ValidateAdminToken(token string) (string, error) {
	if token != adminToken {
		return "", errors.New("unknown admin token")
	}
	return "A1", nil
}

type env struct {
	router  http.Handler
	cases   *casestore.InMemoryStore
	service *service.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cases := casestore.NewInMemoryStore()
	matches := matchstore.NewInMemoryStore()
	contacts := contactstore.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc := service.New(cases, matches, contacts, service.WithLogger(logger))
	h := New(svc, logger, staticValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return &env{router: r, cases: cases, service: svc}
}

func (e *env) seedVerifiedPair(t *testing.T) (missing, found *casemodels.Case) {
	t.Helper()
	now := time.Now().UTC()
	age := 30
	var err error
	missing, err = casemodels.NewCase(casemodels.KindMissing, "Ali", &age, casemodels.GenderMale, "Lahore", "reporter-1", now)
	if err != nil {
		t.Fatalf("failed to build missing case: %v", err)
	}
	found, err = casemodels.NewCase(casemodels.KindFound, "Ali Raza", &age, casemodels.GenderMale, "Lahore", "reporter-2", now)
	if err != nil {
		t.Fatalf("failed to build found case: %v", err)
	}
	missing.Status = casemodels.StatusVerified
	found.Status = casemodels.StatusVerified
	for _, c := range []*casemodels.Case{missing, found} {
		if err := e.cases.Create(context.Background(), c); err != nil {
			t.Fatalf("failed to seed case: %v", err)
		}
	}
	return missing, found
}

func (e *env) do(t *testing.T, method, path string, withToken bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if withToken {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminTokenRequired(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/admin/matches/pending", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", rec.Code)
	}
}

func TestGenerateAndResolveViaHandlers(t *testing.T) {
	e := newEnv(t)
	missing, found := e.seedVerifiedPair(t)

	rec := e.do(t, http.MethodPost, "/admin/cases/"+missing.ID.String()+"/matches", true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 generating matches, got %d: %s", rec.Code, rec.Body.String())
	}
	var genResp struct {
		Matches []struct {
			ID            uuid.UUID `json:"id"`
			MissingCaseID uuid.UUID `json:"missing_case_id"`
			FoundCaseID   uuid.UUID `json:"found_case_id"`
			Score         int       `json:"score"`
			Status        string    `json:"status"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&genResp); err != nil {
		t.Fatalf("failed to decode generate response: %v", err)
	}
	if len(genResp.Matches) != 1 {
		t.Fatalf("expected 1 generated match, got %d", len(genResp.Matches))
	}
	m := genResp.Matches[0]
	if m.MissingCaseID != missing.ID || m.FoundCaseID != found.ID {
		t.Fatalf("match orientation wrong: %+v", m)
	}
	if m.Score < service.DefaultMinScore {
		t.Fatalf("expected score >= %d, got %d", service.DefaultMinScore, m.Score)
	}

	rec = e.do(t, http.MethodGet, "/admin/matches/pending", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing pending, got %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/admin/matches/"+m.ID.String()+"/confirm", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 confirming match, got %d: %s", rec.Code, rec.Body.String())
	}
	var confirmResp struct {
		Status     string  `json:"status"`
		ResolvedBy *string `json:"resolved_by"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&confirmResp); err != nil {
		t.Fatalf("failed to decode confirm response: %v", err)
	}
	if confirmResp.Status != "confirmed" {
		t.Fatalf("expected confirmed status, got %q", confirmResp.Status)
	}
	if confirmResp.ResolvedBy == nil || *confirmResp.ResolvedBy != "A1" {
		t.Fatalf("expected resolved_by A1, got %v", confirmResp.ResolvedBy)
	}

	// Second confirmation conflicts.
	rec = e.do(t, http.MethodPost, "/admin/matches/"+m.ID.String()+"/confirm", true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double confirm, got %d", rec.Code)
	}
}

func TestRejectMatchViaHandler(t *testing.T) {
	e := newEnv(t)
	missing, _ := e.seedVerifiedPair(t)

	created, err := e.service.GenerateMatches(context.Background(), missing.ID)
	if err != nil || len(created) != 1 {
		t.Fatalf("failed to seed match: %v (%d)", err, len(created))
	}

	rec := e.do(t, http.MethodPost, "/admin/matches/"+created[0].ID.String()+"/reject", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 rejecting match, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := e.cases.FindByID(context.Background(), missing.ID)
	if err != nil {
		t.Fatalf("failed to reload case: %v", err)
	}
	if got.Status != casemodels.StatusVerified || got.MatchedWithCaseID != nil {
		t.Fatalf("reject must not mutate cases: %+v", got)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/admin/matches/"+uuid.New().String(), true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown match, got %d", rec.Code)
	}
}

func TestInvalidMatchID(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/admin/matches/not-a-uuid", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed match id, got %d", rec.Code)
	}
}
