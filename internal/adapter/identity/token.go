package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

const tokenIssuer = "pantry-sync"

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func issueToken(user *User, signingKey []byte, ttl time.Duration, now time.Time) (domain.Session, error) {
	expiresAt := now.Add(ttl)
	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     signed,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func parseToken(tokenString string, signingKey []byte, now func() time.Time) (domain.Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
		}
		return domain.Session{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}

	return domain.Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Token:     tokenString,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
