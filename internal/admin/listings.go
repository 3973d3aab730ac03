package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// GET /admin/listings?status=active|completed
func (h *Handler) ListListings(c echo.Context) error {
	status := models.ListingStatus(c.QueryParam("status"))
	switch status {
	case "", models.ListingActive, models.ListingCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	items, err := h.listings.All(c.Request().Context(), status)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": items})
}

// DELETE /admin/listings/:id removes any listing with everything that
// references it.
func (h *Handler) DeleteListing(c echo.Context) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := h.listings.AdminDelete(c.Request().Context(), id); err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "listing deleted", "listing_id": id})
}
