package nonce

import (
	"context"
	"time"

	"smart-locker-control/internal/storage"
)

// SQLStore keeps nonces in the nonces table of the storage provider.
type SQLStore struct {
	*janitor
	provider storage.Provider
}

func NewSQLStore(provider storage.Provider) *SQLStore {
	return &SQLStore{
		janitor:  newJanitor("SQLNonceStore"),
		provider: provider,
	}
}

func (s *SQLStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return s.provider.CreateNonce(ctx, nonce, time.Now().Add(ttl))
}

// Consume cannot tell an expired nonce from a used one, both report ErrUnknown.
func (s *SQLStore) Consume(ctx context.Context, nonce string) (bool, error) {
	ok, err := s.provider.ConsumeNonce(ctx, nonce, time.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrUnknown
	}
	return true, nil
}

func (s *SQLStore) Exists(ctx context.Context, nonce string) bool {
	ok, err := s.provider.ExistsNonce(ctx, nonce, time.Now())
	if err != nil {
		s.logger.Error("Failed to check nonce", "error", err)
		return false
	}
	return ok
}

func (s *SQLStore) ExpireNonces(ctx context.Context) error {
	return s.provider.ExpireNonces(ctx, time.Now())
}
