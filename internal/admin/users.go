// Package admin exposes moderation endpoints. Every route sits behind the
// admin guard.
package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/marketplace"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/user"
	"github.com/sudo-init-do/carhub/internal/utils"
)

type Handler struct {
	store    store.Store
	users    *user.Service
	listings *listing.Service
	market   *marketplace.Service
}

func NewHandler(s store.Store, users *user.Service, listings *listing.Service, market *marketplace.Service) *Handler {
	return &Handler{store: s, users: users, listings: listings, market: market}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)

	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/verify", h.VerifyUser)

	g.GET("/listings", h.ListListings)
	g.DELETE("/listings/:id", h.DeleteListing)

	g.GET("/ratings", h.ListRatings)
	g.DELETE("/ratings/:id", h.DeleteRating)
}

// GET /admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

type VerifyRequest struct {
	// Verified defaults to true when the body is empty
	Verified *bool `json:"verified"`
}

// POST /admin/users/:id/verify
func (h *Handler) VerifyUser(c echo.Context) error {
	userID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	verified := req.Verified == nil || *req.Verified

	u, err := h.users.SetVerified(c.Request().Context(), userID, verified)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification updated", "user": u})
}
