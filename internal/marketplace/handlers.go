package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/utils"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/listings/:id/reserve", h.Reserve)
	g.POST("/transactions/:id/confirm", h.Confirm)
	g.POST("/transactions/:id/cancel", h.Cancel)
	g.POST("/transactions/:id/rating", h.Rate)
	g.GET("/me/transactions", h.History)
	g.POST("/me/verify", h.RequestVerification)
	g.GET("/sellers/:id/rating", h.SellerRating)
}

// =========================
// Reserve - seller picks the buyer of a listing
// =========================
func (h *Handler) Reserve(c echo.Context) error {
	sellerID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	listingID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	tr, err := h.svc.Reserve(c.Request().Context(), listingID, sellerID, req.BuyerID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": tr,
		"message":     "Listing reserved. Awaiting buyer confirmation.",
	})
}

// =========================
// Confirm - buyer confirms the purchase
// =========================
func (h *Handler) Confirm(c echo.Context) error {
	buyerID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	tr, err := h.svc.Confirm(c.Request().Context(), id, buyerID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction": tr, "message": "Purchase confirmed."})
}

// =========================
// Cancel - either party backs out
// =========================
func (h *Handler) Cancel(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	tr, err := h.svc.Cancel(c.Request().Context(), id, userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction": tr, "message": "Transaction canceled."})
}

// Rate lets the buyer rate a completed transaction
func (h *Handler) Rate(c echo.Context) error {
	buyerID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var req RateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	r, err := h.svc.Rate(c.Request().Context(), id, buyerID, req.Scores, req.Comment)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, RateResponse{Rating: r, Message: "Thanks for your rating!"})
}

func (h *Handler) History(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	hist, err := h.svc.History(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *Handler) RequestVerification(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	u, err := h.svc.RequestVerification(c.Request().Context(), userID, req.Agree)
	if err != nil {
		return utils.Fail(c, err)
	}
	msg := "Your seller profile is now verified."
	if !u.Verified {
		msg = "You need at least 5 completed transactions to verify."
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "message": msg})
}

func (h *Handler) SellerRating(c echo.Context) error {
	sellerID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	sum, err := h.svc.SellerRating(c.Request().Context(), sellerID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
