//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	casemodels "reunite/internal/cases/models"
	casestore "reunite/internal/cases/store"
	"reunite/internal/contact/models"
	"reunite/internal/contact/store"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/testutil/containers"
)

type ContactPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	cases    *casestore.PostgresStore
	caseID   uuid.UUID
}

func TestContactPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ContactPostgresSuite))
}

func (s *ContactPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.cases = casestore.NewPostgres(s.postgres.DB)
}

func (s *ContactPostgresSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.Truncate(ctx, "contact_requests", "cases")
	s.Require().NoError(err)

	age := 30
	c, err := casemodels.NewCase(casemodels.KindMissing, "Sara Khan", &age, casemodels.GenderFemale, "Karachi", "reporter-1", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.cases.Create(ctx, c))
	s.caseID = c.ID
}

func (s *ContactPostgresSuite) storedRequest(email string, createdAt time.Time) *models.ContactRequest {
	r, err := models.NewContactRequest(s.caseID, "", email, "I may have information", "Firefox (Linux)", createdAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), r))
	return r
}

func (s *ContactPostgresSuite) TestCreateAndFindRoundtrip() {
	ctx := context.Background()
	r := s.storedRequest("friend@example.com", time.Now().UTC().Truncate(time.Microsecond))

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(r.ID, got.ID)
	s.Equal(s.caseID, got.CaseID)
	s.Empty(got.RequesterID)
	s.Equal("friend@example.com", got.RequesterEmail)
	s.Equal("Firefox (Linux)", got.RequesterAgent)
	s.Equal(models.StatusPending, got.Status)
	s.Nil(got.RespondedAt)
}

func (s *ContactPostgresSuite) TestUpdatePersistsResolution() {
	ctx := context.Background()
	r := s.storedRequest("friend@example.com", time.Now().UTC())
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(r.Approve(now))
	s.Require().NoError(s.store.Update(ctx, r))

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
	s.NotNil(got.RespondedAt)
}

func (s *ContactPostgresSuite) TestListByCaseOrdersNewestFirst() {
	ctx := context.Background()
	now := time.Now().UTC()
	older := s.storedRequest("first@example.com", now.Add(-time.Hour))
	newer := s.storedRequest("second@example.com", now)

	list, err := s.store.ListByCase(ctx, s.caseID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
}

func (s *ContactPostgresSuite) TestRejectPendingByCase() {
	ctx := context.Background()
	now := time.Now().UTC()
	pending1 := s.storedRequest("one@example.com", now)
	pending2 := s.storedRequest("two@example.com", now)
	approved := s.storedRequest("three@example.com", now)
	s.Require().NoError(approved.Approve(now))
	s.Require().NoError(s.store.Update(ctx, approved))

	count, err := s.store.RejectPendingByCase(ctx, s.caseID, now)
	s.Require().NoError(err)
	s.Equal(2, count)

	for _, id := range []uuid.UUID{pending1.ID, pending2.ID} {
		got, err := s.store.FindByID(ctx, id)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, got.Status)
	}
	got, err := s.store.FindByID(ctx, approved.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)

	count, err = s.store.RejectPendingByCase(ctx, s.caseID, now)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ContactPostgresSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost, err := models.NewContactRequest(s.caseID, "", "ghost@example.com", "", "", time.Now().UTC())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
}
