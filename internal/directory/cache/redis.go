// Package cache provides the redis-backed directory account cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"larch/internal/directory/models"
	id "larch/pkg/domain"
)

// DefaultTTL bounds how stale a cached account may get. Role changes in the
// directory take effect within this window.
const DefaultTTL = 5 * time.Minute

// RedisCache stores accounts as JSON under a per-user key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func key(userID id.UserID) string {
	return "larch:directory:account:" + userID.String()
}

type cachedAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Type      string `json:"type"`
}

// Get returns nil, nil on a miss.
func (c *RedisCache) Get(ctx context.Context, userID id.UserID) (*models.Account, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var cached cachedAccount
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	accountID, err := id.ParseUserID(cached.ID)
	if err != nil {
		return nil, fmt.Errorf("cache decode id: %w", err)
	}
	return &models.Account{
		ID:        accountID,
		Email:     cached.Email,
		FirstName: cached.FirstName,
		LastName:  cached.LastName,
		Type:      id.AccountType(cached.Type),
	}, nil
}

func (c *RedisCache) Put(ctx context.Context, account *models.Account) error {
	raw, err := json.Marshal(cachedAccount{
		ID:        account.ID.String(),
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Type:      string(account.Type),
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(account.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
