package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
	"larch/pkg/platform/audit/store/memory"
)

type flakyStore struct {
	*memory.InMemoryStore
	failNext bool
}

func (f *flakyStore) Append(ctx context.Context, event audit.Event) error {
	if f.failNext {
		f.failNext = false
		return errors.New("append failed")
	}
	return f.InMemoryStore.Append(ctx, event)
}

type WorkerSuite struct {
	suite.Suite
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) TestDrainsEventsIntoStore() {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 2)
	worker := New(store, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	appID := id.NewApplicationID()
	inbox <- audit.Event{Name: audit.EventApplicationApproved, ApplicationID: appID}
	inbox <- audit.Event{Name: audit.EventApplicationWithdrawn, ApplicationID: appID}

	s.Eventually(func() bool {
		events, err := store.ListByApplication(context.Background(), appID)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *WorkerSuite) TestStoreFailureDoesNotStopTheLoop() {
	store := &flakyStore{InMemoryStore: memory.NewInMemoryStore(), failNext: true}
	inbox := make(chan audit.Event, 2)
	worker := New(store, inbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	appID := id.NewApplicationID()
	inbox <- audit.Event{Name: audit.EventApplicationApproved, ApplicationID: appID}
	inbox <- audit.Event{Name: audit.EventApplicationRefused, ApplicationID: appID}

	s.Eventually(func() bool {
		events, err := store.ListByApplication(context.Background(), appID)
		return err == nil && len(events) == 1 && events[0].Name == audit.EventApplicationRefused
	}, time.Second, 10*time.Millisecond)
}
