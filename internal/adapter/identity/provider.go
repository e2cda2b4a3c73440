package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

const minPasswordLength = 6

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)

// Provider is a self-hosted identity provider: bcrypt passwords in a gorm
// user table, HS256 session tokens, and a denylist for signed-out tokens.
type Provider struct {
	users      *UserRepository
	denylist   Denylist
	signingKey []byte
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(domain.AuthEvent)
	nextID    int
}

func NewProvider(users *UserRepository, denylist Denylist, signingKey string, ttl time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		users:      users,
		denylist:   denylist,
		signingKey: []byte(signingKey),
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[int]func(domain.AuthEvent)),
	}
}

// Register creates the account and signs it in.
func (p *Provider) Register(ctx context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return domain.Session{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}
	if len(password) < minPasswordLength {
		return domain.Session{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLength)
	}

	existing, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.Session{}, domain.Remote("find user", err)
	}
	if existing != nil {
		return domain.Session{}, fmt.Errorf("email %s: %w", email, domain.ErrAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := &User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Session{}, err
		}
		return domain.Session{}, domain.Remote("create user", err)
	}
	p.logger.Info("user registered", zap.String("user_id", user.ID))

	return p.startSession(user)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	user, err := p.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.Session{}, domain.Remote("find user", err)
	}
	if user == nil {
		return domain.Session{}, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		p.logger.Warn("sign-in rejected", zap.String("user_id", user.ID))
		return domain.Session{}, errInvalidCredentials
	}

	return p.startSession(user)
}

// Authenticate resolves a bearer token. Revoked tokens and tokens of deleted
// accounts are rejected.
func (p *Provider) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	session, err := parseToken(token, p.signingKey, p.now)
	if err != nil {
		return domain.Session{}, err
	}

	revoked, err := p.denylist.IsTokenRevoked(ctx, session.TokenID)
	if err != nil {
		return domain.Session{}, domain.Remote("check denylist", err)
	}
	if revoked {
		return domain.Session{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}

	user, err := p.users.FindByID(ctx, session.UserID)
	if err != nil {
		return domain.Session{}, domain.Remote("find user", err)
	}
	if user == nil {
		return domain.Session{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthenticated)
	}

	return session, nil
}

func (p *Provider) SignOut(ctx context.Context, session domain.Session) error {
	if session.TokenID == "" {
		return fmt.Errorf("%w: session has no token", domain.ErrInvalidArgument)
	}

	ttl := session.ExpiresAt.Sub(p.now())
	if _, err := p.denylist.RevokeToken(ctx, session.TokenID, ttl); err != nil {
		return domain.Remote("revoke token", err)
	}

	p.notify(domain.AuthEvent{Type: domain.AuthEventSignedOut, Session: session, At: p.now()})
	return nil
}

// DeleteIdentity removes the user; deleting an unknown user succeeds so
// retries are safe.
func (p *Provider) DeleteIdentity(ctx context.Context, userID string) error {
	if err := p.users.Delete(ctx, userID); err != nil {
		return domain.Remote("delete user", err)
	}

	p.notify(domain.AuthEvent{Type: domain.AuthEventDeleted, Session: domain.Session{UserID: userID}, At: p.now()})
	return nil
}

func (p *Provider) Subscribe(listener func(domain.AuthEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = listener

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) startSession(user *User) (domain.Session, error) {
	session, err := issueToken(user, p.signingKey, p.ttl, p.now())
	if err != nil {
		return domain.Session{}, err
	}

	p.notify(domain.AuthEvent{Type: domain.AuthEventSignedIn, Session: session, At: p.now()})
	return session, nil
}

func (p *Provider) notify(event domain.AuthEvent) {
	p.mu.RLock()
	listeners := make([]func(domain.AuthEvent), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
