// Package postgres backs the internal staff directory.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"larch/internal/directory/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetAccount(ctx context.Context, userID id.UserID) (*models.Account, error) {
	account := &models.Account{}
	var accountType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, account_type
		FROM accounts
		WHERE id = $1`, userID,
	).Scan(&account.ID, &account.Email, &account.FirstName, &account.LastName, &accountType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	account.Type = id.AccountType(accountType)
	return account, nil
}

func (s *Store) GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*models.Account, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		raw = append(raw, userID.String())
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, first_name, last_name, account_type
		FROM accounts
		WHERE id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		var accountType string
		if err := rows.Scan(&account.ID, &account.Email, &account.FirstName, &account.LastName, &accountType); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.Type = id.AccountType(accountType)
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
