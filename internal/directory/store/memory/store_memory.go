package memory

import (
	"context"
	"sync"

	"larch/internal/directory/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// InMemoryAccountStore backs one directory in tests and single-node runs.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.UserID]models.Account
}

func New() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.UserID]models.Account)}
}

// Seed registers an account, replacing any existing record.
func (s *InMemoryAccountStore) Seed(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

func (s *InMemoryAccountStore) GetAccount(_ context.Context, userID id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", userID)
	}
	return &account, nil
}

func (s *InMemoryAccountStore) GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*models.Account, error) {
	var accounts []*models.Account
	for _, userID := range userIDs {
		account, err := s.GetAccount(ctx, userID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
