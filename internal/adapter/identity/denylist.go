package identity

import (
	"context"
	"sync"
	"time"
)

// Denylist remembers signed-out token ids until they would have expired.
type Denylist interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryDenylist) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)
	if ttl <= 0 {
		return true, nil
	}
	if _, ok := m.revoked[tokenID]; ok {
		return false, nil
	}
	m.revoked[tokenID] = now.Add(ttl)
	return true, nil
}

func (m *MemoryDenylist) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.revoked[tokenID]
	return ok && m.now().Before(expiry), nil
}

func (m *MemoryDenylist) evict(now time.Time) {
	for id, expiry := range m.revoked {
		if !now.Before(expiry) {
			delete(m.revoked, id)
		}
	}
}
