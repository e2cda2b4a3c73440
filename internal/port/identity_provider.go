package port

import (
	"context"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

type IdentityProvider interface {
	Register(ctx context.Context, email, password string) (domain.Session, error)

	SignIn(ctx context.Context, email, password string) (domain.Session, error)

	// Authenticate resolves a bearer token to the current user's session
	Authenticate(ctx context.Context, token string) (domain.Session, error)

	SignOut(ctx context.Context, session domain.Session) error

	DeleteIdentity(ctx context.Context, userID string) error

	// Subscribe registers a listener for sign-in, sign-out and deletion.
	// The returned func removes it.
	Subscribe(listener func(domain.AuthEvent)) (unsubscribe func())
}

// IdentityDeleter is the slice of IdentityProvider account deletion needs.
type IdentityDeleter interface {
	DeleteIdentity(ctx context.Context, userID string) error
}
