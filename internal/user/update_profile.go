package user

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/utils"
)

type Handler struct {
	svc   *Service
	pages *Pages
}

func NewHandler(svc *Service, pages *Pages) *Handler {
	return &Handler{svc: svc, pages: pages}
}

func (h *Handler) Register(g *echo.Group) {
	g.PATCH("/me/profile", h.UpdateProfile)
	g.GET("/users/:id/profile", h.GetPublicProfile)
	g.GET("/sellers/:id", h.GetSellerPage)
	g.GET("/buyers/:id", h.GetBuyerPage)
}

// PATCH /me/profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}

	var req ContactsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	u, err := h.svc.UpdateContacts(c.Request().Context(), userID, req)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "profile updated successfully",
		"user":    u,
	})
}
