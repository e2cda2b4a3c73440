package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/port"
)

var errBackendDown = errors.New("backend down")

// Mock ItemStore offering only the minimal contract
type mockItemStore struct {
	mu      sync.Mutex
	items   map[string]map[string]int
	calls   int
	failOn  map[string]error
	created int
}

func newMockItemStore() *mockItemStore {
	return &mockItemStore{
		items:  make(map[string]map[string]int),
		failOn: make(map[string]error),
	}
}

func (m *mockItemStore) record(op string) error {
	m.calls++
	return m.failOn[op]
}

func (m *mockItemStore) GetItem(ctx context.Context, userID, name string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetItem"); err != nil {
		return nil, err
	}

	qty, ok := m.items[userID][name]
	if !ok {
		return nil, nil
	}
	return &domain.Item{Name: name, Quantity: qty}, nil
}

func (m *mockItemStore) GetAllItems(ctx context.Context, userID string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetAllItems"); err != nil {
		return nil, err
	}

	var items []domain.Item
	for name, qty := range m.items[userID] {
		items = append(items, domain.Item{Name: name, Quantity: qty})
	}
	return items, nil
}

func (m *mockItemStore) CreateItem(ctx context.Context, userID, name string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateItem"); err != nil {
		return err
	}

	if _, ok := m.items[userID][name]; ok {
		return domain.ErrAlreadyExists
	}
	if m.items[userID] == nil {
		m.items[userID] = make(map[string]int)
	}
	m.items[userID][name] = quantity
	m.created++
	return nil
}

func (m *mockItemStore) IncrementItem(ctx context.Context, userID, name string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("IncrementItem"); err != nil {
		return err
	}

	if _, ok := m.items[userID][name]; !ok {
		return domain.ErrNotFound
	}
	m.items[userID][name] += delta
	return nil
}

func (m *mockItemStore) DeleteItem(ctx context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteItem"); err != nil {
		return err
	}

	delete(m.items[userID], name)
	return nil
}

func (m *mockItemStore) DeleteScope(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteScope"); err != nil {
		return err
	}

	delete(m.items, userID)
	return nil
}

func (m *mockItemStore) quantity(userID, name string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.items[userID][name]
	return qty, ok
}

func (m *mockItemStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockItemStore) fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[op] = err
}

// Mock store with the atomic capabilities
type mockAtomicStore struct {
	*mockItemStore
	upserts   int
	withdraws int
}

func newMockAtomicStore() *mockAtomicStore {
	return &mockAtomicStore{mockItemStore: newMockItemStore()}
}

func (m *mockAtomicStore) AddQuantity(ctx context.Context, userID, name string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("AddQuantity"); err != nil {
		return err
	}

	if m.items[userID] == nil {
		m.items[userID] = make(map[string]int)
	}
	m.items[userID][name] += delta
	m.upserts++
	return nil
}

func (m *mockAtomicStore) TakeQuantity(ctx context.Context, userID, name string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("TakeQuantity"); err != nil {
		return 0, err
	}

	qty, ok := m.items[userID][name]
	if !ok {
		return 0, domain.ErrNotFound
	}
	m.withdraws++
	if amount >= qty {
		delete(m.items[userID], name)
		return 0, nil
	}
	m.items[userID][name] = qty - amount
	return qty - amount, nil
}

// Mock IdentityDeleter
type mockIdentity struct {
	mu       sync.Mutex
	deleted  []string
	failures int
	err      error
}

func (m *mockIdentity) DeleteIdentity(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return m.err
	}
	m.deleted = append(m.deleted, userID)
	return nil
}

func (m *mockIdentity) deletedUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) published() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

var testSession = domain.Session{UserID: "user-1", Email: "user@example.com"}

func newTestSynchronizer(store port.ItemStore) (*Synchronizer, *mockIdentity, *mockPublisher) {
	identity := &mockIdentity{}
	publisher := &mockPublisher{}
	return NewSynchronizer(store, identity, publisher, zap.NewNop(), 10), identity, publisher
}
