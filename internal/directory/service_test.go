package directory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"larch/internal/directory/cache"
	"larch/internal/directory/models"
	"larch/internal/directory/store/memory"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type DirectorySuite struct {
	suite.Suite
	mini     *miniredis.Miniredis
	internal *memory.InMemoryAccountStore
	external *memory.InMemoryAccountStore
	service  *Service
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})

	s.internal = memory.New()
	s.external = memory.New()

	var err error
	s.service, err = New(s.internal, s.external,
		WithCache(cache.New(client, time.Minute)),
	)
	s.Require().NoError(err)
}

func (s *DirectorySuite) seedStaff(accountType id.AccountType) models.Account {
	account := models.Account{
		ID:        id.NewUserID(),
		Email:     "officer@forestry.test",
		FirstName: "Jo",
		LastName:  "Birch",
		Type:      accountType,
	}
	s.internal.Seed(account)
	return account
}

func (s *DirectorySuite) TestGetAccount() {
	ctx := context.Background()

	s.Run("nil id is rejected", func() {
		_, err := s.service.GetAccount(ctx, id.UserID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("internal directory hit", func() {
		staff := s.seedStaff(id.AccountWoodlandOfficer)
		account, err := s.service.GetAccount(ctx, staff.ID)
		s.Require().NoError(err)
		s.Equal(staff.Email, account.Email)
	})

	s.Run("unknown internal user falls through to external directory", func() {
		applicant := models.Account{
			ID:    id.NewUserID(),
			Email: "owner@estate.test",
			Type:  id.AccountExternal,
		}
		s.external.Seed(applicant)

		account, err := s.service.GetAccount(ctx, applicant.ID)
		s.Require().NoError(err)
		s.Equal(id.AccountExternal, account.Type)
	})

	s.Run("missing in both directories returns not found", func() {
		_, err := s.service.GetAccount(ctx, id.NewUserID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DirectorySuite) TestCacheServesRepeatLookups() {
	ctx := context.Background()
	staff := s.seedStaff(id.AccountFieldManager)

	_, err := s.service.GetAccount(ctx, staff.ID)
	s.Require().NoError(err)

	// Change the backend record; within the TTL the cached copy wins,
	// proving repeat lookups do not hit the directory.
	updated := staff
	updated.Type = id.AccountAdminOfficer
	s.internal.Seed(updated)

	account, err := s.service.GetAccount(ctx, staff.ID)
	s.Require().NoError(err)
	s.Equal(staff.ID, account.ID)
	s.Equal(id.AccountFieldManager, account.Type)
}

func (s *DirectorySuite) TestCacheEntriesExpire() {
	ctx := context.Background()
	staff := s.seedStaff(id.AccountAdminOfficer)

	_, err := s.service.GetAccount(ctx, staff.ID)
	s.Require().NoError(err)

	s.mini.FastForward(2 * time.Minute)

	updated := staff
	updated.Type = id.AccountFieldManager
	s.internal.Seed(updated)

	account, err := s.service.GetAccount(ctx, staff.ID)
	s.Require().NoError(err)
	s.Equal(id.AccountFieldManager, account.Type)
}

func (s *DirectorySuite) TestGetAccountsByIds() {
	ctx := context.Background()
	first := s.seedStaff(id.AccountAdminOfficer)
	second := s.seedStaff(id.AccountWoodlandOfficer)

	accounts, err := s.service.GetAccountsByIds(ctx, []id.UserID{first.ID, id.NewUserID(), second.ID})
	s.Require().NoError(err)
	s.Len(accounts, 2, "unknown users are skipped")
	s.Equal(first.ID, accounts[0].ID)
	s.Equal(second.ID, accounts[1].ID)
}
