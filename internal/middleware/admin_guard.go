package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// AdminGuard ensures only admin users can access admin routes. The flag is
// read from the store so a revoked admin loses access before the token
// expires.
func AdminGuard(s store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := utils.UserID(c)
			if !ok {
				return utils.Unauthorized(c)
			}
			var isAdmin bool
			err := s.View(c.Request().Context(), func(tx store.Tx) error {
				u, err := tx.GetUser(c.Request().Context(), userID)
				isAdmin = u.IsAdmin
				return err
			})
			if err != nil || !isAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "Admin access required.",
				})
			}
			return next(c)
		}
	}
}
