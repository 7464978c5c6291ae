package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smart-locker-control/internal/config"
)

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// Locker state methods
	GetLockerState(ctx context.Context, lockerID string) (*LockerState, error)
	SaveLockerState(ctx context.Context, state LockerState) error

	// Activity log methods. Logs are FIFO bounded to maxEntries by insertion order.
	AppendActivity(ctx context.Context, entry ActivityEntry, maxEntries int) error
	// ListActivity returns entries most recent first. limit <= 0 returns everything.
	ListActivity(ctx context.Context, log LogName, limit int) ([]ActivityEntry, error)
	ClearActivity(ctx context.Context, log LogName) error

	// Nonce-related methods
	CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	ExistsNonce(ctx context.Context, nonce string, now time.Time) (bool, error)
	ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error)
	ExpireNonces(ctx context.Context, now time.Time) error
}

func NewProvider(cfg *config.Storage) (Provider, error) {
	switch cfg.Type {
	case config.StorageMemory, "":
		return NewMemoryProvider(), nil

	case config.StorageSQLite:
		provider, err := NewSQLiteProvider(cfg)
		if err != nil {
			return nil, err
		}
		if err := provider.runMigrations(); err != nil {
			provider.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return provider, nil
	}

	slog.Error("Unsupported storage configuration", "type", cfg.Type)
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}
