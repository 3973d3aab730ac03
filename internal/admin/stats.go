package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var users, active, completed, ratings, verified int
	err := h.store.View(ctx, func(tx store.Tx) error {
		us, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		users = len(us)
		for _, u := range us {
			if u.Verified {
				verified++
			}
		}
		ls, err := tx.ListListings(ctx, models.ListingFilter{})
		if err != nil {
			return err
		}
		for _, l := range ls {
			switch l.Status {
			case models.ListingActive:
				active++
			case models.ListingCompleted:
				completed++
			}
		}
		rs, err := tx.ListRatings(ctx)
		ratings = len(rs)
		return err
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":              users,
		"verified_sellers":   verified,
		"active_listings":    active,
		"completed_listings": completed,
		"ratings":            ratings,
	})
}
