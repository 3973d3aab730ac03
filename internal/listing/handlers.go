package listing

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/utils"
)

// ViewRecorder remembers that a user opened a listing.
type ViewRecorder interface {
	RecordView(ctx context.Context, userID, listingID int64) error
}

type Handler struct {
	svc   *Service
	views ViewRecorder
}

func NewHandler(svc *Service, views ViewRecorder) *Handler {
	return &Handler{svc: svc, views: views}
}

// Register mounts the listing routes on an authenticated group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/listings/newest", h.Newest)
	g.GET("/listings/compare", h.Compare)
	g.POST("/listings", h.Create)
	g.GET("/listings/:id", h.Get)
	g.PUT("/listings/:id", h.Edit)
	g.DELETE("/listings/:id", h.Delete)
	g.POST("/listings/:id/images", h.UploadImage)
	g.GET("/listings/:id/similar", h.Similar)
	g.GET("/me/listings", h.Mine)
}

// =========================
// Create - seller lists a car
// =========================
func (h *Handler) Create(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	var spec models.Spec
	if err := c.Bind(&spec); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	l, err := h.svc.Create(c.Request().Context(), userID, spec)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// =========================
// Edit - owner updates an active listing
// =========================
func (h *Handler) Edit(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var spec models.Spec
	if err := c.Bind(&spec); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	l, err := h.svc.Edit(c.Request().Context(), id, userID, spec)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// =========================
// Delete - owner removes a listing
// =========================
func (h *Handler) Delete(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), id, userID); err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Listing deleted."})
}

// UploadImage stores a multipart "image" file and attaches it to the listing.
func (h *Handler) UploadImage(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing image"})
	}
	if err := CheckImageName(fh.Filename); err != nil {
		return utils.Fail(c, err)
	}
	if fh.Size > MaxImageBytes {
		return utils.Fail(c, apperr.Validation("Each image must be 1MB or less."))
	}
	f, err := fh.Open()
	if err != nil {
		return utils.Fail(c, err)
	}
	defer f.Close()
	body, err := SniffImage(f)
	if err != nil {
		return utils.Fail(c, err)
	}

	path, err := h.svc.Images().Save(fh.Filename, body)
	if err != nil {
		return utils.Fail(c, err)
	}
	img, err := h.svc.AddImage(c.Request().Context(), id, userID, path)
	if err != nil {
		removeFiles(h.svc.Images(), []models.Image{{FilePath: path}})
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusCreated, img)
}

// Get returns one listing and records the view for the caller.
func (h *Handler) Get(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return utils.Fail(c, err)
	}
	if h.views != nil {
		if err := h.views.RecordView(c.Request().Context(), userID, id); err != nil {
			log.Printf("[listing] record view user=%d listing=%d: %v", userID, id, err)
		}
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Newest(c echo.Context) error {
	out, err := h.svc.Newest(c.Request().Context())
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Similar(c echo.Context) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	out, err := h.svc.Similar(c.Request().Context(), id)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Compare shows up to two active listings side by side; ?ids=3,7
func (h *Handler) Compare(c echo.Context) error {
	out, err := h.svc.Compare(c.Request().Context(), parseIDs(c.QueryParam("ids")))
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// parseIDs reads a comma separated id list, skipping malformed entries and
// repeats.
func parseIDs(raw string) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Mine lists the caller's listings; ?status=active|completed narrows it.
func (h *Handler) Mine(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	status := models.ListingStatus(c.QueryParam("status"))
	switch status {
	case "", models.ListingActive, models.ListingCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	out, err := h.svc.ListByOwner(c.Request().Context(), userID, status)
	if err != nil {
		return utils.Fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
