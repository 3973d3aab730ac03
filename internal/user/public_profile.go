package user

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// GET /users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	userID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	p, err := h.svc.Profile(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /sellers/:id
func (h *Handler) GetSellerPage(c echo.Context) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	p, err := h.pages.Seller(c.Request().Context(), id)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /buyers/:id
func (h *Handler) GetBuyerPage(c echo.Context) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	p, err := h.pages.Buyer(c.Request().Context(), id)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
