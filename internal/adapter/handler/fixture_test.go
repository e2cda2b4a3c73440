package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/adapter/storage"
	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/core/service"
	"github.com/rl1809/pantry-sync/internal/platform/messaging"
)

type fakeIdentity struct {
	mu        sync.Mutex
	passwords map[string]string
	sessions  map[string]domain.Session
	deleteErr error
	next      int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		passwords: make(map[string]string),
		sessions:  make(map[string]domain.Session),
	}
}

func (f *fakeIdentity) Register(_ context.Context, email, password string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.Contains(email, "@") {
		return domain.Session{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}
	if _, ok := f.passwords[email]; ok {
		return domain.Session{}, domain.ErrAlreadyExists
	}
	f.passwords[email] = password
	return f.issue(email), nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.passwords[email]; !ok || p != password {
		return domain.Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	return f.issue(email), nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, token string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[token]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: unknown token", domain.ErrUnauthenticated)
	}
	return session, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, session.Token)
	return nil
}

func (f *fakeIdentity) DeleteIdentity(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
			delete(f.passwords, s.Email)
		}
	}
	return nil
}

func (f *fakeIdentity) Subscribe(func(domain.AuthEvent)) func() {
	return func() {}
}

func (f *fakeIdentity) issue(email string) domain.Session {
	f.next++
	session := domain.Session{
		UserID:    "user-" + email,
		Email:     email,
		Token:     fmt.Sprintf("token-%d", f.next),
		TokenID:   fmt.Sprintf("jti-%d", f.next),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.sessions[session.Token] = session
	return session
}

func newTestSynchronizer(identity *fakeIdentity) *service.Synchronizer {
	return service.NewSynchronizer(storage.NewMemoryAdapter(), identity, messaging.NoopPublisher{}, zap.NewNop(), 10)
}
