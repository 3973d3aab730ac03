package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/user"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// LoginRequest takes a username or an email address in Username.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	u, err := h.users.Authenticate(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, user.ErrInvalidLogin) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": apperr.Message(err)})
	}
	if err != nil {
		return utils.Fail(c, err)
	}
	return h.issue(c, http.StatusOK, u)
}
