package messaging

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
	g.POST("/listings/:id/conversation", h.StartConversation)
	g.GET("/threads", h.Inbox)
	g.GET("/threads/unread", h.UnreadCount)
	g.GET("/threads/:id", h.ListMessages)
	g.POST("/threads/:id/messages", h.SendMessage)
	g.GET("/threads/:id/ws", h.ThreadWS)
}

// StartConversation - buyer opens a thread with the seller of a listing
func (h *Handler) StartConversation(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	listingID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	th, err := h.svc.StartConversation(c.Request().Context(), listingID, userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, th)
}

// SendMessage - buyer or seller sends a message in a thread
func (h *Handler) SendMessage(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	threadID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	m, err := h.svc.Send(c.Request().Context(), threadID, userID, body.Body)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ListMessages - open a thread; marks what the caller received as read
func (h *Handler) ListMessages(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	threadID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	conv, err := h.svc.Open(c.Request().Context(), threadID, userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// UnreadCount - unread messages addressed to the caller across all threads
func (h *Handler) UnreadCount(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *Handler) Inbox(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	threads, err := h.svc.Inbox(c.Request().Context(), userID)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"threads": threads})
}
