package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/port"
)

const sessionKey = "session"

// AuthMiddleware resolves the bearer token into a Session stored on the
// echo context.
func AuthMiddleware(identity port.IdentityProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return writeError(c, err)
			}

			session, err := identity.Authenticate(c.Request().Context(), token)
			if err != nil {
				return writeError(c, err)
			}

			c.Set(sessionKey, session)
			return next(c)
		}
	}
}

// sessionFrom returns the zero Session on unauthenticated routes, which the
// synchronizer rejects.
func sessionFrom(c echo.Context) domain.Session {
	session, _ := c.Get(sessionKey).(domain.Session)
	return session
}
