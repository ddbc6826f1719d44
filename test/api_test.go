package test

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"reunite/internal/cases/cache"
	casehandler "reunite/internal/cases/handler"
	caseservice "reunite/internal/cases/service"
	casestore "reunite/internal/cases/store"
	contacthandler "reunite/internal/contact/handler"
	contactservice "reunite/internal/contact/service"
	contactstore "reunite/internal/contact/store"
	jwttoken "reunite/internal/jwt_token"
	matchhandler "reunite/internal/matching/handler"
	matchservice "reunite/internal/matching/service"
	matchstore "reunite/internal/matching/store"
	"reunite/internal/notify"
	"reunite/internal/platform/middleware"
	"reunite/pkg/testutil"
)

// newAPI wires the full router against in-memory stores, the way main does
// for a DSN-less deployment.
func newAPI(t *testing.T) (http.Handler, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cases := casestore.NewInMemoryStore()
	matches := matchstore.NewInMemoryStore()
	contacts := contactstore.NewInMemoryStore()

	jwtService := jwttoken.NewJWTService("api-test-signing-key")
	adminJWT, err := jwtService.GenerateAdminToken("A1", time.Hour)
	require.NoError(t, err)

	contactSvc := contactservice.New(contacts, cases, contactservice.WithLogger(logger))
	matchSvc := matchservice.New(cases, matches, contactSvc,
		matchservice.WithLogger(logger),
		matchservice.WithNotifier(notify.NewLogNotifier(logger)),
	)
	caseSvc := caseservice.New(cases,
		caseservice.WithLogger(logger),
		caseservice.WithCache(cache.NewInMemoryCache(time.Minute)),
		caseservice.WithMatchInvalidator(matchSvc),
		caseservice.WithContactCleaner(contactSvc),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.ContentTypeJSON)
	casehandler.New(caseSvc, logger, jwtService).Register(router)
	contacthandler.New(contactSvc, logger, jwtService).Register(router)
	matchhandler.New(matchSvc, logger, jwtService).Register(router)

	return router, adminJWT
}

func asAdmin(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type caseResp struct {
	ID                uuid.UUID  `json:"id"`
	Status            string     `json:"status"`
	MatchedWithCaseID *uuid.UUID `json:"matched_with_case_id"`
	CancelledAt       *time.Time `json:"cancelled_at"`
}

type matchResp struct {
	ID            uuid.UUID `json:"id"`
	MissingCaseID uuid.UUID `json:"missing_case_id"`
	FoundCaseID   uuid.UUID `json:"found_case_id"`
	Score         int       `json:"score"`
	Status        string    `json:"status"`
	ResolvedBy    *string   `json:"resolved_by"`
}

type matchListResp struct {
	Matches []matchResp `json:"matches"`
}

func submitCase(t *testing.T, router http.Handler, kind, name, city, reporterID string, lastSeen time.Time) caseResp {
	t.Helper()
	age := 9
	req := testutil.NewJSONRequest(t, http.MethodPost, "/cases", map[string]any{
		"kind":                  kind,
		"full_name":             name,
		"age":                   age,
		"gender":                "female",
		"city":                  city,
		"last_seen_or_found_on": lastSeen,
		"contact_email":         reporterID + "@example.com",
		"reporter_id":           reporterID,
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[caseResp](t, rr)
}

func TestReunificationFlow(t *testing.T) {
	router, adminJWT := newAPI(t)
	lastSeen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var missing, found caseResp
	testutil.Given(t, "a verified missing report and a matching found report", func(t *testing.T) {
		missing = submitCase(t, router, "missing", "Ayesha Bibi", "Lahore", "family-1", lastSeen)
		found = submitCase(t, router, "found", "Ayesha Bibi", "Lahore", "shelter-1", lastSeen.AddDate(0, 0, 5))

		for _, id := range []uuid.UUID{missing.ID, found.ID} {
			req := asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/cases/"+id.String()+"/verify", nil), adminJWT)
			testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusOK)
		}
	})

	var match matchResp
	testutil.When(t, "an admin generates candidates for the missing case", func(t *testing.T) {
		req := asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/cases/"+missing.ID.String()+"/matches", nil), adminJWT)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		created := testutil.UnmarshalResponse[matchListResp](t, rr)
		require.Len(t, created.Matches, 1)
		match = created.Matches[0]

		testutil.Then(t, "the match pairs the two cases with a passing score", func(t *testing.T) {
			require.Equal(t, missing.ID, match.MissingCaseID)
			require.Equal(t, found.ID, match.FoundCaseID)
			require.GreaterOrEqual(t, match.Score, 70)
			require.Equal(t, "pending", match.Status)
		})
	})

	testutil.When(t, "the admin confirms the match", func(t *testing.T) {
		req := asAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/admin/matches/pending", nil), adminJWT)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		require.Len(t, testutil.UnmarshalResponse[matchListResp](t, rr).Matches, 1)

		req = asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/matches/"+match.ID.String()+"/confirm", nil), adminJWT)
		rr = testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		confirmed := testutil.UnmarshalResponse[matchResp](t, rr)
		require.Equal(t, "confirmed", confirmed.Status)
		require.NotNil(t, confirmed.ResolvedBy)
		require.Equal(t, "A1", *confirmed.ResolvedBy)

		testutil.Then(t, "both cases resolve as found and link to each other", func(t *testing.T) {
			for caseID, counterpartID := range map[uuid.UUID]uuid.UUID{missing.ID: found.ID, found.ID: missing.ID} {
				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/cases/"+caseID.String()))
				testutil.AssertStatusOK(t, rr)
				got := testutil.UnmarshalResponse[caseResp](t, rr)
				require.Equal(t, "found", got.Status)
				require.NotNil(t, got.MatchedWithCaseID)
				require.Equal(t, counterpartID, *got.MatchedWithCaseID)
			}
		})

		testutil.Then(t, "a second confirmation attempt conflicts", func(t *testing.T) {
			req := asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/matches/"+match.ID.String()+"/confirm", nil), adminJWT)
			testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusConflict)
		})
	})
}

func TestCancellationInvalidatesPendingMatches(t *testing.T) {
	router, adminJWT := newAPI(t)
	lastSeen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	missing := submitCase(t, router, "missing", "Bilal Ahmed", "Karachi", "family-2", lastSeen)
	found := submitCase(t, router, "found", "Bilal Ahmed", "Karachi", "shelter-2", lastSeen)
	for _, id := range []uuid.UUID{missing.ID, found.ID} {
		req := asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/cases/"+id.String()+"/verify", nil), adminJWT)
		testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusOK)
	}
	req := asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/cases/"+missing.ID.String()+"/matches", nil), adminJWT)
	testutil.AssertStatus(t, testutil.DoRequest(router, req), http.StatusCreated)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/cases/"+missing.ID.String()+"/cancel", map[string]string{
		"reporter_id": "family-2",
	}))
	testutil.AssertStatusOK(t, rr)
	require.NotNil(t, testutil.UnmarshalResponse[caseResp](t, rr).CancelledAt)

	req = asAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/admin/matches/pending", nil), adminJWT)
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	require.Empty(t, testutil.UnmarshalResponse[matchListResp](t, rr).Matches)
}

func TestAdminRoutesRejectMissingToken(t *testing.T) {
	router, _ := newAPI(t)
	for _, path := range []string{"/admin/cases/", "/admin/matches/pending"} {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	}
}
