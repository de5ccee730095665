// Package httpapi is the client for the external applicant directory, which
// exposes the same account contract as the internal one.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"larch/internal/directory/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) { client.http = c }
}

func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AccountType string `json:"account_type"`
}

func (p accountPayload) toAccount() (*models.Account, error) {
	userID, err := id.ParseUserID(p.ID)
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:        userID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Type:      id.AccountType(p.AccountType),
	}, nil
}

func (c *Client) GetAccount(ctx context.Context, userID id.UserID) (*models.Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/accounts/"+userID.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call directory: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", userID)
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "directory returned status %d", resp.StatusCode)
	}

	var payload accountPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	return payload.toAccount()
}

func (c *Client) GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*models.Account, error) {
	accounts := make([]*models.Account, 0, len(userIDs))
	for _, userID := range userIDs {
		account, err := c.GetAccount(ctx, userID)
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
