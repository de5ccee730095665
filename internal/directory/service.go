// Package directory resolves user accounts from the internal staff
// directory and the external applicant directory, which expose the same
// contract. Lookups are fronted by an optional redis cache because account
// data is read on every transition but changes rarely.
package directory

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"larch/internal/directory/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
)

// AccountStore is one directory backend.
type AccountStore interface {
	GetAccount(ctx context.Context, userID id.UserID) (*models.Account, error)
	GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*models.Account, error)
}

// Cache stores resolved accounts with a TTL. A nil lookup result with nil
// error means miss.
type Cache interface {
	Get(ctx context.Context, userID id.UserID) (*models.Account, error)
	Put(ctx context.Context, account *models.Account) error
}

const batchConcurrency = 8

// Service fronts both directories. The internal directory is consulted
// first; unknown users fall through to the external one.
type Service struct {
	internal AccountStore
	external AccountStore
	cache    Cache
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(internal, external AccountStore, opts ...Option) (*Service, error) {
	if internal == nil || external == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "both directory backends are required")
	}
	s := &Service{internal: internal, external: external}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetAccount resolves one account, returning CodeNotFound when neither
// directory knows the user. Cache failures degrade to a direct lookup.
func (s *Service) GetAccount(ctx context.Context, userID id.UserID) (*models.Account, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "directory cache read failed", "user_id", userID, "error", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	account, err := s.internal.GetAccount(ctx, userID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "internal directory lookup failed")
	}
	if account == nil || err != nil {
		account, err = s.external.GetAccount(ctx, userID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "external directory lookup failed")
		}
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, account); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "directory cache write failed", "user_id", userID, "error", err)
		}
	}
	return account, nil
}

// GetAccountsByIds resolves a batch in parallel with bounded concurrency.
// Unknown users are skipped; order of the found accounts follows the input.
func (s *Service) GetAccountsByIds(ctx context.Context, userIDs []id.UserID) ([]*models.Account, error) {
	results := make([]*models.Account, len(userIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			account, err := s.GetAccount(ctx, userID)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					return nil
				}
				return err
			}
			results[i] = account
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, 0, len(userIDs))
	for _, account := range results {
		if account != nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}
