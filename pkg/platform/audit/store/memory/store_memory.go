package memory

import (
	"context"
	"sync"

	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
)

// InMemoryStore keeps audit events per application. Used in tests and when
// no database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ApplicationID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ApplicationID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.ApplicationID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ApplicationID] = append(s.events[event.ApplicationID], event)
	return nil
}

func (s *InMemoryStore) ListByApplication(_ context.Context, applicationID id.ApplicationID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[applicationID]...), nil
}
