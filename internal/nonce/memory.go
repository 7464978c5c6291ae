package nonce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps nonces in process. Codes do not survive a restart and are
// not visible to other processes.
type MemoryStore struct {
	*janitor

	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		janitor: newJanitor("MemoryNonceStore"),
		expiry:  make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be > 0")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry[nonce] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[nonce]
	if !ok {
		return false, ErrUnknown
	}
	delete(m.expiry, nonce)
	if m.now().After(exp) {
		return false, ErrExpired
	}
	return true, nil
}

func (m *MemoryStore) Exists(ctx context.Context, nonce string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[nonce]
	return ok && !m.now().After(exp)
}

func (m *MemoryStore) ExpireNonces(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for n, exp := range m.expiry {
		if now.After(exp) {
			delete(m.expiry, n)
		}
	}
	return nil
}

// Len returns the number of stored nonces, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expiry)
}
