package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// GET /admin/ratings
func (h *Handler) ListRatings(c echo.Context) error {
	items, err := h.market.ListRatings(c.Request().Context())
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ratings": items})
}

// DELETE /admin/ratings/:id
func (h *Handler) DeleteRating(c echo.Context) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := h.market.DeleteRating(c.Request().Context(), id); err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rating deleted", "rating_id": id})
}
