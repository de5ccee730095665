package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
	"larch/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("sink unavailable")
}

func (failingStore) ListByApplication(context.Context, id.ApplicationID) ([]audit.Event, error) {
	return nil, errors.New("sink unavailable")
}

type TeeSuite struct {
	suite.Suite
}

func TestTeeSuite(t *testing.T) {
	suite.Run(t, new(TeeSuite))
}

func (s *TeeSuite) TestFansOutToEveryStore() {
	first := memory.NewInMemoryStore()
	second := memory.NewInMemoryStore()
	tee := audit.Tee(first, second)

	appID := id.NewApplicationID()
	s.Require().NoError(tee.Append(context.Background(), audit.Event{
		Name:          audit.EventApplicationApproved,
		ApplicationID: appID,
	}))

	for _, store := range []*memory.InMemoryStore{first, second} {
		events, err := store.ListByApplication(context.Background(), appID)
		s.Require().NoError(err)
		s.Len(events, 1)
	}
}

func (s *TeeSuite) TestOneFailingStoreDoesNotBlockTheOthers() {
	healthy := memory.NewInMemoryStore()
	tee := audit.Tee(healthy, failingStore{})

	appID := id.NewApplicationID()
	err := tee.Append(context.Background(), audit.Event{
		Name:          audit.EventApplicationWithdrawn,
		ApplicationID: appID,
	})
	s.Error(err)

	events, listErr := healthy.ListByApplication(context.Background(), appID)
	s.Require().NoError(listErr)
	s.Len(events, 1)
}

func (s *TeeSuite) TestReadsServedByFirstStore() {
	first := memory.NewInMemoryStore()
	tee := audit.Tee(first, failingStore{})

	appID := id.NewApplicationID()
	s.Require().NoError(first.Append(context.Background(), audit.Event{
		Name:          audit.EventConsultationPublished,
		ApplicationID: appID,
	}))

	events, err := tee.ListByApplication(context.Background(), appID)
	s.Require().NoError(err)
	s.Len(events, 1)
}
