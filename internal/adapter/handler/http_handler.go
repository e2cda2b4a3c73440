package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/core/service"
	"github.com/rl1809/pantry-sync/internal/port"
)

type HTTPHandler struct {
	synchronizer *service.Synchronizer
	identity     port.IdentityProvider
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddItemRequest struct {
	Name string `json:"name"`
}

type RemoveItemRequest struct {
	Amount int `json:"amount"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ItemResponse struct {
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SnapshotResponse struct {
	UserID     string         `json:"user_id"`
	Items      []ItemResponse `json:"items"`
	TotalUnits int            `json:"total_units"`
}

func NewHTTPHandler(synchronizer *service.Synchronizer, identity port.IdentityProvider) *HTTPHandler {
	return &HTTPHandler{synchronizer: synchronizer, identity: identity}
}

func (h *HTTPHandler) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.identity.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (h *HTTPHandler) SignIn(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.identity.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (h *HTTPHandler) SignOut(c echo.Context) error {
	if err := h.identity.SignOut(c.Request().Context(), sessionFrom(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "signed out"})
}

func (h *HTTPHandler) Inventory(c echo.Context) error {
	snap, err := h.synchronizer.Refresh(c.Request().Context(), sessionFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

func (h *HTTPHandler) Item(c echo.Context) error {
	name, err := itemName(c)
	if err != nil {
		return badRequest(c, "invalid item name")
	}

	item, err := h.synchronizer.Item(c.Request().Context(), sessionFrom(c), name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *HTTPHandler) AddItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	snap, err := h.synchronizer.AddItem(c.Request().Context(), sessionFrom(c), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

func (h *HTTPHandler) RemoveItem(c echo.Context) error {
	name, err := itemName(c)
	if err != nil {
		return badRequest(c, "invalid item name")
	}

	var req RemoveItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	snap, err := h.synchronizer.RemoveItem(c.Request().Context(), sessionFrom(c), name, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

func (h *HTTPHandler) DeleteAccount(c echo.Context) error {
	if err := h.synchronizer.DeleteAccount(c.Request().Context(), sessionFrom(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "account deleted"})
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(c echo.Context, err error) error {
	status, message := httpError(err)
	return c.JSON(status, MessageResponse{Success: false, Message: message})
}

// itemName returns the :name path parameter. Echo matches on RawPath when the
// request carries one, leaving the parameter escaped; otherwise it is already
// decoded and must not be unescaped again.
func itemName(c echo.Context) (string, error) {
	name := c.Param("name")
	if c.Request().URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, MessageResponse{Success: false, Message: message})
}

func toSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{UserID: s.UserID, Email: s.Email, Token: s.Token, ExpiresAt: s.ExpiresAt}
}

func toItemResponse(item domain.Item) ItemResponse {
	return ItemResponse{Name: item.Name, Quantity: item.Quantity, UpdatedAt: item.UpdatedAt}
}

func toSnapshotResponse(snap domain.Snapshot) SnapshotResponse {
	items := make([]ItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, toItemResponse(item))
	}
	return SnapshotResponse{UserID: snap.UserID, Items: items, TotalUnits: snap.TotalUnits()}
}

func bearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	return header[len(prefix):], nil
}
