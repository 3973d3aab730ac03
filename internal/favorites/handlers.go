package favorites

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/utils"
)

type Handler struct {
	svc    *Service
	images listing.ImageStore
}

func NewHandler(svc *Service, images listing.ImageStore) *Handler {
	return &Handler{svc: svc, images: images}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/listings/:id/favorite", h.Toggle)
	g.GET("/me/favorites", h.List)
	g.GET("/me/recent", h.Recent)
}

// Toggle adds or removes the listing from the caller's favorites.
func (h *Handler) Toggle(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	fav, err := h.svc.Toggle(c.Request().Context(), userID, id)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"listing_id": id, "favorite": fav})
}

func (h *Handler) List(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	ls, err := h.svc.Favorites(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, listing.SummarizeAll(h.images, ls))
}

func (h *Handler) Recent(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	ls, err := h.svc.RecentlyViewed(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, listing.SummarizeAll(h.images, ls))
}
