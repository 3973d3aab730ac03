package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// Me returns the currently authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	u, err := h.users.Get(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
