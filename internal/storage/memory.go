package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider keeps everything in process memory. State is lost on restart.
type MemoryProvider struct {
	mu      sync.RWMutex
	lockers map[string]LockerState
	logs    map[LogName][]ActivityEntry // oldest first
	nonces  map[string]time.Time
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		lockers: make(map[string]LockerState),
		logs:    make(map[LogName][]ActivityEntry),
		nonces:  make(map[string]time.Time),
	}
}

func (p *MemoryProvider) Close() error { return nil }

func (p *MemoryProvider) GetSchemaVersion(ctx context.Context) (int, error) { return 0, nil }

func (p *MemoryProvider) GetLockerState(ctx context.Context, lockerID string) (*LockerState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.lockers[lockerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &state, nil
}

func (p *MemoryProvider) SaveLockerState(ctx context.Context, state LockerState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lockers[state.LockerID] = state
	return nil
}

func (p *MemoryProvider) AppendActivity(ctx context.Context, entry ActivityEntry, maxEntries int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := append(p.logs[entry.Log], entry)
	if maxEntries > 0 && len(entries) > maxEntries {
		// Copy so the evicted prefix can be collected.
		entries = append([]ActivityEntry(nil), entries[len(entries)-maxEntries:]...)
	}
	p.logs[entry.Log] = entries
	return nil
}

func (p *MemoryProvider) ListActivity(ctx context.Context, log LogName, limit int) ([]ActivityEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries := p.logs[log]
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ActivityEntry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (p *MemoryProvider) ClearActivity(ctx context.Context, log LogName) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.logs, log)
	return nil
}

func (p *MemoryProvider) CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonces[nonce] = expiresAt
	return nil
}

func (p *MemoryProvider) ExistsNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	exp, ok := p.nonces[nonce]
	return ok && now.Before(exp), nil
}

func (p *MemoryProvider) ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.nonces[nonce]
	if !ok || !now.Before(exp) {
		return false, nil
	}
	delete(p.nonces, nonce)
	return true, nil
}

func (p *MemoryProvider) ExpireNonces(ctx context.Context, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for n, exp := range p.nonces {
		if !now.Before(exp) {
			delete(p.nonces, n)
		}
	}
	return nil
}
