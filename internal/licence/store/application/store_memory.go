package application

import (
	"context"
	"sync"

	"larch/internal/licence/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// InMemoryStore is the test and local-development repository. Clones on the
// way in and out so callers never share aggregate state with the store.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: map[id.ApplicationID]*models.Application{}}
}

func (s *InMemoryStore) Get(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[applicationID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "application %s not found", applicationID)
	}
	return app.Clone(), nil
}

// Save applies optimistic concurrency: the caller's snapshot version must
// match the stored version or the write is rejected with a conflict. The
// first Save of a new application expects version zero.
func (s *InMemoryStore) Save(_ context.Context, app *models.Application) error {
	if app == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "application is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.apps[app.ID]; ok && existing.Version != app.Version {
		return dErrors.Newf(dErrors.CodeConflict,
			"application %s modified concurrently (have version %d, want %d)",
			app.ID, app.Version, existing.Version)
	}
	app.Version++
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status id.FellingStatus) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.apps {
		if current, ok := app.CurrentStatus(); ok && current == status {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

// Clear empties the store between tests.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = map[id.ApplicationID]*models.Application{}
}
