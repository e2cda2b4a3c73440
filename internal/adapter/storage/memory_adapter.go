package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

// MemoryAdapter is a process-local item store for development and tests.
type MemoryAdapter struct {
	mu    sync.RWMutex
	users map[string]map[string]domain.Item
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{users: make(map[string]map[string]domain.Item)}
}

func (m *MemoryAdapter) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.users[userID][name]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MemoryAdapter) GetAllItems(ctx context.Context, userID string) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.Item, 0, len(m.users[userID]))
	for _, item := range m.users[userID] {
		items = append(items, item)
	}
	return items, nil
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, userID, name string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID][name]; ok {
		return fmt.Errorf("item %q: %w", name, domain.ErrAlreadyExists)
	}
	m.put(userID, name, quantity)
	return nil
}

func (m *MemoryAdapter) IncrementItem(ctx context.Context, userID, name string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.users[userID][name]
	if !ok {
		return fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}
	m.put(userID, name, item.Quantity+delta)
	return nil
}

func (m *MemoryAdapter) AddQuantity(ctx context.Context, userID, name string, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: delta must be positive", domain.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(userID, name, m.users[userID][name].Quantity+delta)
	return nil
}

func (m *MemoryAdapter) TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.users[userID][name]
	if !ok {
		return 0, fmt.Errorf("item %q: %w", name, domain.ErrNotFound)
	}

	remaining := item.Quantity - amount
	if remaining < 0 {
		remaining = 0
	}
	m.put(userID, name, remaining)
	return remaining, nil
}

func (m *MemoryAdapter) DeleteItem(ctx context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users[userID], name)
	return nil
}

func (m *MemoryAdapter) DeleteScope(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, userID)
	return nil
}

// put stores quantity, dropping the record when it is no longer positive.
// Caller holds the write lock.
func (m *MemoryAdapter) put(userID, name string, quantity int) {
	if quantity <= 0 {
		delete(m.users[userID], name)
		return
	}
	if m.users[userID] == nil {
		m.users[userID] = make(map[string]domain.Item)
	}
	m.users[userID][name] = domain.Item{Name: name, Quantity: quantity, UpdatedAt: time.Now().UTC()}
}
