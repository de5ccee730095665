package audit

import (
	"context"
	"errors"

	id "larch/pkg/domain"
)

// TeeStore fans Append out to every store. Reads are served by the first
// store, which is expected to be the queryable one.
type TeeStore struct {
	stores []Store
}

func Tee(stores ...Store) *TeeStore {
	return &TeeStore{stores: stores}
}

func (t *TeeStore) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range t.stores {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *TeeStore) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Event, error) {
	if len(t.stores) == 0 {
		return nil, nil
	}
	return t.stores[0].ListByApplication(ctx, applicationID)
}
