package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"larch/internal/licence/models"
	"larch/internal/licence/store/application"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *application.InMemoryStore
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = application.NewInMemoryStore()
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) newApplication(status id.FellingStatus) *models.Application {
	app := &models.Application{
		ID:          id.NewApplicationID(),
		Reference:   "FLA-2026-0001",
		OwnerID:     id.NewUserID(),
		CreatedByID: id.NewUserID(),
		Region:      "North",
	}
	s.Require().NoError(app.AppendStatus(status, app.CreatedByID, s.now))
	return app
}

func (s *MemoryStoreSuite) TestGetUnknownApplication() {
	_, err := s.store.Get(s.ctx, id.NewApplicationID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestSaveAndGetRoundTrip() {
	app := s.newApplication(id.StatusSubmitted)
	s.Require().NoError(s.store.Save(s.ctx, app))
	s.Equal(int64(1), app.Version)

	got, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.Reference, got.Reference)
	s.Equal(int64(1), got.Version)
	current, ok := got.CurrentStatus()
	s.Require().True(ok)
	s.Equal(id.StatusSubmitted, current)
}

func (s *MemoryStoreSuite) TestGetReturnsDetachedCopy() {
	app := s.newApplication(id.StatusSubmitted)
	s.Require().NoError(s.store.Save(s.ctx, app))

	got, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NoError(got.AppendStatus(id.StatusWithdrawn, id.NewUserID(), s.now.Add(time.Hour)))

	again, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	current, _ := again.CurrentStatus()
	s.Equal(id.StatusSubmitted, current)
}

func (s *MemoryStoreSuite) TestStaleSnapshotIsRejected() {
	app := s.newApplication(id.StatusSubmitted)
	s.Require().NoError(s.store.Save(s.ctx, app))

	first, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	second, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)

	s.Require().NoError(first.AppendStatus(id.StatusAdminOfficerReview, id.NewUserID(), s.now.Add(time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, first))

	s.Require().NoError(second.AppendStatus(id.StatusWithdrawn, id.NewUserID(), s.now.Add(time.Hour)))
	err = s.store.Save(s.ctx, second)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MemoryStoreSuite) TestListByStatus() {
	withApplicant := s.newApplication(id.StatusWithApplicant)
	submitted := s.newApplication(id.StatusSubmitted)
	s.Require().NoError(s.store.Save(s.ctx, withApplicant))
	s.Require().NoError(s.store.Save(s.ctx, submitted))

	apps, err := s.store.ListByStatus(s.ctx, id.StatusWithApplicant)
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(withApplicant.ID, apps[0].ID)
}
