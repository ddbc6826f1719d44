package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	casemodels "reunite/internal/cases/models"
	casestore "reunite/internal/cases/store"
	"reunite/internal/contact/models"
	"reunite/internal/contact/store"
	dErrors "reunite/pkg/domain-errors"
	"reunite/pkg/requestcontext"
)

var fixedNow = time.Date(2024, time.March, 2, 14, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), fixedNow)
	return requestcontext.WithClientMetadata(ctx, "203.0.113.9", "Firefox/125.0 (Linux)")
}

func newFixture(t *testing.T) (*Service, *casestore.InMemoryStore, *casemodels.Case) {
	t.Helper()
	cases := casestore.NewInMemoryStore()
	requests := store.NewInMemoryStore()

	age := 30
	owning, err := casemodels.NewCase(casemodels.KindMissing, "Ali", &age, casemodels.GenderMale, "Lahore", "reporter-1", fixedNow)
	require.NoError(t, err)
	owning.Status = casemodels.StatusVerified
	require.NoError(t, cases.Create(context.Background(), owning))

	return New(requests, cases), cases, owning
}

func TestCreateRequest(t *testing.T) {
	svc, _, owning := newFixture(t)

	req, err := svc.CreateRequest(testCtx(), owning.ID, "", "friend@example.com", "I may know him")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Empty(t, req.RequesterID)
	assert.Equal(t, "Firefox/125.0 (Linux)", req.RequesterAgent)
}

func TestCreateRequest_EmailRequired(t *testing.T) {
	svc, _, owning := newFixture(t)

	_, err := svc.CreateRequest(testCtx(), owning.ID, "", "not-an-email", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreateRequest_ClosedCase(t *testing.T) {
	svc, cases, owning := newFixture(t)

	owning.Cancel(fixedNow)
	require.NoError(t, cases.Update(context.Background(), owning))

	_, err := svc.CreateRequest(testCtx(), owning.ID, "", "friend@example.com", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestApproveAndReject(t *testing.T) {
	svc, _, owning := newFixture(t)

	req, err := svc.CreateRequest(testCtx(), owning.ID, "user-9", "friend@example.com", "")
	require.NoError(t, err)

	_, err = svc.ApproveRequest(testCtx(), req.ID, "stranger")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	approved, err := svc.ApproveRequest(testCtx(), req.ID, "reporter-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.RespondedAt)

	// Terminal requests cannot be resolved again.
	_, err = svc.RejectRequest(testCtx(), req.ID, "reporter-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRejectPendingByCase(t *testing.T) {
	svc, _, owning := newFixture(t)

	for range 3 {
		_, err := svc.CreateRequest(testCtx(), owning.ID, "", "friend@example.com", "")
		require.NoError(t, err)
	}
	req, err := svc.CreateRequest(testCtx(), owning.ID, "", "friend@example.com", "")
	require.NoError(t, err)
	_, err = svc.ApproveRequest(testCtx(), req.ID, "reporter-1")
	require.NoError(t, err)

	count, err := svc.RejectPendingByCase(testCtx(), owning.ID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Approved requests are untouched; the batch only hits pending rows.
	all, err := svc.ListByCase(testCtx(), owning.ID)
	require.NoError(t, err)
	approved := 0
	for _, r := range all {
		switch r.Status {
		case models.StatusApproved:
			approved++
		case models.StatusRejected:
		default:
			t.Fatalf("unexpected status %s", r.Status)
		}
	}
	assert.Equal(t, 1, approved)

	count, err = svc.RejectPendingByCase(testCtx(), owning.ID, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, count)
}
