package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/port"
)

// NewHTTPServer builds the echo router for the REST API.
func NewHTTPServer(h *HTTPHandler, identity port.IdentityProvider, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/signin", h.SignIn)
	auth.POST("/signout", h.SignOut, AuthMiddleware(identity))

	inventory := api.Group("/inventory", AuthMiddleware(identity))
	inventory.GET("", h.Inventory)
	inventory.GET("/items/:name", h.Item)
	inventory.POST("/items", h.AddItem)
	inventory.POST("/items/:name/remove", h.RemoveItem)

	api.DELETE("/account", h.DeleteAccount, AuthMiddleware(identity))

	return e
}
