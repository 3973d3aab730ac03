// Package auth issues bearer tokens for registered users.
package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/user"
	"github.com/sudo-init-do/carhub/internal/utils"
)

type Handler struct {
	users *user.Service
	// secret signs tokens; the JWT middleware verifies with the same key
	secret          []byte
	ttl             time.Duration
	bootstrapSecret string
}

func NewHandler(users *user.Service, secret []byte, ttl time.Duration, bootstrapSecret string) *Handler {
	return &Handler{users: users, secret: secret, ttl: ttl, bootstrapSecret: bootstrapSecret}
}

// Register mounts the unauthenticated routes on the /auth group and the
// caller's own account on protected.
func (h *Handler) Register(authGroup, protected *echo.Group) {
	authGroup.POST("/register", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/bootstrap-admin", h.BootstrapAdmin)
	protected.GET("/me", h.Me)
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func role(u models.User) string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

func (h *Handler) issue(c echo.Context, status int, u models.User) error {
	signed, err := utils.IssueToken(h.secret, u.ID, role(u), h.ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(status, TokenResponse{Token: signed, User: u})
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(user.RegisterRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	u, err := h.users.Register(c.Request().Context(), *req)
	if err != nil {
		return utils.Fail(c, err)
	}
	return h.issue(c, http.StatusCreated, u)
}
