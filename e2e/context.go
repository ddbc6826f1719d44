// Package e2e drives a running reunite server over HTTP with godog scenarios.
// The suite is black-box: it talks to REUNITE_E2E_BASE_URL and never imports
// server internals.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TestContext carries the HTTP client and state shared across scenario steps.
type TestContext struct {
	baseURL    string
	client     *http.Client
	adminToken string

	lastStatus int
	lastBody   map[string]any

	// IDs saved by steps so later steps can reference them by role.
	caseIDs map[string]string
	matchID string
}

// NewTestContext builds a context for the server at baseURL. When
// REUNITE_E2E_ADMIN_TOKEN is set it is exchanged for an admin JWT up front so
// admin steps can authenticate.
func NewTestContext(baseURL string) (*TestContext, error) {
	tc := &TestContext{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		caseIDs: make(map[string]string),
	}
	if bootstrap := os.Getenv("REUNITE_E2E_ADMIN_TOKEN"); bootstrap != "" {
		if err := tc.fetchAdminJWT(bootstrap); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// Reset clears per-scenario state. The admin token survives: it is suite
// scoped, not scenario scoped.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.caseIDs = make(map[string]string)
	tc.matchID = ""
}

func (tc *TestContext) fetchAdminJWT(bootstrap string) error {
	req, err := http.NewRequest(http.MethodPost, tc.baseURL+"/admin/token", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Token", bootstrap)
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("exchange admin token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange admin token: status %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode admin token response: %w", err)
	}
	tc.adminToken = body.Token
	return nil
}

// POST sends a JSON body to path. A nil body sends an empty request.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, false)
}

// AdminPOST is POST with the admin bearer token attached.
func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, true)
}

// GET fetches path without authentication.
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, false)
}

// AdminGET is GET with the admin bearer token attached.
func (tc *TestContext) AdminGET(path string) error {
	return tc.do(http.MethodGet, path, nil, true)
}

func (tc *TestContext) do(method, path string, body any, admin bool) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		if tc.adminToken == "" {
			return fmt.Errorf("admin step requires REUNITE_E2E_ADMIN_TOKEN")
		}
		req.Header.Set("Authorization", "Bearer "+tc.adminToken)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
		tc.lastBody = parsed
	}
	return nil
}

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

// GetResponseField reads a top-level field from the most recent JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON response recorded")
	}
	v, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q", field)
	}
	return v, nil
}

// SaveCaseID stores the last response's id under a scenario-local role name
// such as "missing" or "found".
func (tc *TestContext) SaveCaseID(role string) error {
	id, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s, ok := id.(string)
	if !ok {
		return fmt.Errorf("case id is not a string")
	}
	tc.caseIDs[role] = s
	return nil
}

// CaseID returns the case id saved under role.
func (tc *TestContext) CaseID(role string) (string, error) {
	id, ok := tc.caseIDs[role]
	if !ok {
		return "", fmt.Errorf("no case saved under role %q", role)
	}
	return id, nil
}

// SetMatchID stores the match under scrutiny.
func (tc *TestContext) SetMatchID(id string) {
	tc.matchID = id
}

// MatchID returns the stored match id.
func (tc *TestContext) MatchID() (string, error) {
	if tc.matchID == "" {
		return "", fmt.Errorf("no match saved")
	}
	return tc.matchID, nil
}
