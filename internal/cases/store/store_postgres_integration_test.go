//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reunite/internal/cases/models"
	"reunite/internal/cases/store"
	"reunite/pkg/platform/sentinel"
	"reunite/pkg/testutil/containers"
)

type CasePostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestCasePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CasePostgresSuite))
}

func (s *CasePostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *CasePostgresSuite) SetupTest() {
	err := s.postgres.Truncate(context.Background(), "case_matches", "contact_requests", "cases")
	s.Require().NoError(err)
}

func newStoredCase(s *CasePostgresSuite, kind models.CaseKind, name string) *models.Case {
	age := 34
	c, err := models.NewCase(kind, name, &age, models.GenderFemale, "Karachi", "reporter-"+uuid.NewString(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *CasePostgresSuite) TestCreateAndFindRoundtrip() {
	ctx := context.Background()
	c := newStoredCase(s, models.KindMissing, "Sara Khan")

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.Equal(models.KindMissing, found.Kind)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("Sara Khan", found.FullName)
	s.Require().NotNil(found.Age)
	s.Equal(34, *found.Age)
	s.Nil(found.VerifiedBy)
	s.Nil(found.LastSeenOrFoundOn)
	s.Nil(found.MatchedWithCaseID)
	s.Nil(found.CancelledAt)
}

func (s *CasePostgresSuite) TestUpdatePersistsLifecycleFields() {
	ctx := context.Background()
	c := newStoredCase(s, models.KindMissing, "Sara Khan")
	counterpart := newStoredCase(s, models.KindFound, "Unknown Woman")

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(c.Verify("A1", now))
	s.Require().NoError(c.LinkMatch(counterpart.ID, now))
	s.Require().NoError(c.MarkFound("A1", now))
	c.Cancel(now)
	lastSeen := now.AddDate(0, 0, -10)
	c.LastSeenOrFoundOn = &lastSeen
	s.Require().NoError(s.store.Update(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFound, found.Status)
	s.Require().NotNil(found.VerifiedBy)
	s.Equal("A1", *found.VerifiedBy)
	s.Require().NotNil(found.MatchedWithCaseID)
	s.Equal(counterpart.ID, *found.MatchedWithCaseID)
	s.NotNil(found.CancelledAt)
	s.NotNil(found.LastSeenOrFoundOn)
}

func (s *CasePostgresSuite) TestFindByKindAndStatus() {
	ctx := context.Background()
	missing := newStoredCase(s, models.KindMissing, "Sara Khan")
	verified := newStoredCase(s, models.KindMissing, "Bilal Ahmed")
	newStoredCase(s, models.KindFound, "Unknown Man")

	s.Require().NoError(verified.Verify("A1", time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, verified))

	pending, err := s.store.FindByKindAndStatus(ctx, models.KindMissing, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(missing.ID, pending[0].ID)

	verifiedList, err := s.store.FindByKindAndStatus(ctx, models.KindMissing, models.StatusVerified)
	s.Require().NoError(err)
	s.Require().Len(verifiedList, 1)
	s.Equal(verified.ID, verifiedList[0].ID)
}

func (s *CasePostgresSuite) TestListByStatusOrdersNewestFirst() {
	ctx := context.Background()
	age := 40
	older, err := models.NewCase(models.KindMissing, "First Report", &age, models.GenderMale, "Lahore", "reporter-1", time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, older))
	newer := newStoredCase(s, models.KindFound, "Second Report")

	list, err := s.store.ListByStatus(ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
}

func (s *CasePostgresSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost := newStoredCase(s, models.KindMissing, "Ghost")
	s.Require().NoError(s.postgres.Truncate(ctx, "cases"))
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
}
