// Package nonce keeps the one-time identifiers embedded in QR access codes.
// A nonce is valid until it is consumed or its TTL runs out.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smart-locker-control/internal/storage"
)

// Random bytes per nonce, 128 bits.
const nonceSize = 16

type StoreType string

const (
	Memory StoreType = "memory"
	SQL    StoreType = "sql"
)

var (
	ErrUnknown = errors.New("nonce unknown or already used")
	ErrExpired = errors.New("nonce expired")
)

type Store interface {
	// Put stores a nonce that stays valid for ttl.
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume deletes the nonce and reports whether it was still valid.
	// The error tells ErrUnknown and ErrExpired apart.
	Consume(ctx context.Context, nonce string) (bool, error)
	Exists(ctx context.Context, nonce string) bool
	ExpireNonces(ctx context.Context) error
	// Close stops the janitor.
	Close()
}

// New creates a nonce, stores it and returns it.
func New(ctx context.Context, store Store, ttl time.Duration) (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := base64.RawURLEncoding.EncodeToString(b)
	if err := store.Put(ctx, n, ttl); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return n, nil
}

// NewStore builds the Store selected by typ and starts its janitor. The SQL
// store goes through the storage provider, so codes minted by one process can be
// redeemed by another sharing the database.
func NewStore(typ string, provider storage.Provider, janitorInterval time.Duration) (Store, error) {
	var store Store
	switch StoreType(typ) {
	case Memory:
		s := NewMemoryStore()
		s.start(janitorInterval, s.ExpireNonces)
		store = s
	case SQL:
		if provider == nil {
			return nil, fmt.Errorf("sql nonce store requires a storage provider")
		}
		s := NewSQLStore(provider)
		s.start(janitorInterval, s.ExpireNonces)
		store = s
	default:
		return nil, fmt.Errorf("unknown store type %q", typ)
	}

	slog.Info("Initialized nonce store", "type", typ)
	return store, nil
}

// janitor periodically prunes expired nonces until closed.
type janitor struct {
	logger *slog.Logger
	stop   chan struct{}
	once   sync.Once
}

func newJanitor(component string) *janitor {
	return &janitor{
		logger: slog.With("component", component),
		stop:   make(chan struct{}),
	}
}

func (j *janitor) start(interval time.Duration, expire func(context.Context) error) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := expire(context.Background()); err != nil {
					j.logger.Error("Failed to expire nonces", "error", err)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

func (j *janitor) Close() {
	j.once.Do(func() { close(j.stop) })
}
