// Package listing owns car listings: their specification, photos, visibility
// status and the ordered cleanup that runs when one is deleted.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/validation"
)

// Fixed list sizes used by the listing pages.
const (
	NewestLimit  = 4
	SimilarLimit = 4
	CompareLimit = 2
)

var errNotFound = apperr.NotFound("Listing not found.")

// Summary is a listing as shown on cards, with a usable cover image.
type Summary struct {
	models.Listing
	Badges []string `json:"badges"`
}

// Seller is the public part of the listing owner.
type Seller struct {
	ID        int64                `json:"id"`
	Username  string               `json:"username"`
	FirstName string               `json:"first_name"`
	Verified  bool                 `json:"verified"`
	Rating    models.RatingSummary `json:"rating"`
}

// Detail is a single listing with its gallery.
type Detail struct {
	Summary
	Gallery []string `json:"gallery"`
	Seller  Seller   `json:"seller"`
}

type Service struct {
	store  store.Store
	images ImageStore
}

func NewService(s store.Store, images ImageStore) *Service {
	return &Service{store: s, images: images}
}

// Images exposes the photo store so handlers can save uploads.
func (s *Service) Images() ImageStore { return s.images }

func normalize(spec models.Spec) models.Spec {
	for _, f := range []*string{&spec.Make, &spec.Model, &spec.Color, &spec.Fuel, &spec.Transmission,
		&spec.BodyStyle, &spec.Description, &spec.City, &spec.Country, &spec.Phone} {
		*f = strings.TrimSpace(*f)
	}
	return spec
}

// Create stores a new active listing for ownerID. Empty contact fields are
// taken from the owner's profile.
func (s *Service) Create(ctx context.Context, ownerID int64, spec models.Spec) (l models.Listing, err error) {
	defer func() { metrics.ListingsTotal.WithLabelValues("create", metrics.Result(err)).Inc() }()

	spec = normalize(spec)
	if err = validation.Struct(spec); err != nil {
		return models.Listing{}, err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		owner, err := tx.GetUser(ctx, ownerID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Seller not found.")
		}
		if err != nil {
			return fmt.Errorf("get owner: %w", err)
		}
		if spec.Phone == "" {
			spec.Phone = owner.Phone
		}
		if spec.City == "" {
			spec.City = owner.City
		}
		if spec.Country == "" {
			spec.Country = owner.Country
		}

		l = models.Listing{OwnerID: ownerID, Spec: spec, Status: models.ListingActive}
		if err := tx.CreateListing(ctx, &l); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil
	})
	return l, err
}

// Edit replaces the specification of an active listing owned by editorID.
func (s *Service) Edit(ctx context.Context, id, editorID int64, spec models.Spec) (l models.Listing, err error) {
	defer func() { metrics.ListingsTotal.WithLabelValues("edit", metrics.Result(err)).Inc() }()

	spec = normalize(spec)
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		cur, err := tx.GetListing(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if cur.OwnerID != editorID {
			return apperr.Forbidden("You can only edit your own listings.")
		}
		if cur.Status != models.ListingActive {
			return apperr.InvalidState("Completed listings cannot be edited.")
		}
		if err := validation.Struct(spec); err != nil {
			return err
		}
		if spec.Phone == "" {
			spec.Phone = cur.Phone
		}
		if spec.City == "" {
			spec.City = cur.City
		}
		if spec.Country == "" {
			spec.Country = cur.Country
		}

		ok, err := tx.UpdateListingSpec(ctx, id, spec)
		if err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		if !ok {
			// reserved between the read and the write
			return apperr.InvalidState("Completed listings cannot be edited.")
		}
		l, err = tx.GetListing(ctx, id)
		return err
	})
	return l, err
}

// Delete removes a listing owned by callerID together with everything that
// hangs off it.
func (s *Service) Delete(ctx context.Context, id, callerID int64) error {
	return s.delete(ctx, id, func(l models.Listing) error {
		if l.OwnerID != callerID {
			return apperr.Forbidden("You can only delete your own listings.")
		}
		return nil
	})
}

// AdminDelete removes any listing.
func (s *Service) AdminDelete(ctx context.Context, id int64) error {
	return s.delete(ctx, id, func(models.Listing) error { return nil })
}

func (s *Service) delete(ctx context.Context, id int64, allow func(models.Listing) error) (err error) {
	defer func() { metrics.ListingsTotal.WithLabelValues("delete", metrics.Result(err)).Inc() }()

	var imgs []models.Image
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		l, err := tx.GetListing(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if err := allow(l); err != nil {
			return err
		}
		imgs, err = Purge(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}
	removeFiles(s.images, imgs)
	return nil
}

// Purge deletes a listing and its dependents in reference order and returns
// the image records it dropped so the caller can remove the files after
// commit.
func Purge(ctx context.Context, tx store.Tx, id int64) ([]models.Image, error) {
	imgs, err := tx.ListImages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	steps := []struct {
		name string
		fn   func(context.Context, int64) error
	}{
		{"ratings", tx.DeleteListingRatings},
		{"transactions", tx.DeleteTransactions},
		{"images", tx.DeleteImages},
		{"favorites", tx.DeleteFavorites},
		{"recent views", tx.DeleteRecentViews},
		{"messages", tx.DeleteListingMessages},
		{"threads", tx.DeleteThreads},
		{"listing", tx.DeleteListing},
	}
	for _, st := range steps {
		if err := st.fn(ctx, id); err != nil {
			return nil, fmt.Errorf("delete %s: %w", st.name, err)
		}
	}
	return imgs, nil
}

// AddImage attaches a stored photo to an active listing owned by ownerID.
// The listing row is locked first so concurrent uploads cannot both pass
// the photo limit.
func (s *Service) AddImage(ctx context.Context, id, ownerID int64, path string) (img models.Image, err error) {
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		l, err := tx.LockListing(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if l.OwnerID != ownerID {
			return apperr.Forbidden("You can only update your own listings.")
		}
		if l.Status != models.ListingActive {
			return apperr.InvalidState("Completed listings cannot be edited.")
		}
		existing, err := tx.ListImages(ctx, id)
		if err != nil {
			return fmt.Errorf("list images: %w", err)
		}
		if len(existing) >= models.MaxImages {
			return apperr.Validation(fmt.Sprintf("You can upload up to %d photos total.", models.MaxImages))
		}
		img = models.Image{ListingID: id, FilePath: path}
		if err := tx.AddImage(ctx, &img); err != nil {
			return fmt.Errorf("add image: %w", err)
		}
		return nil
	})
	return img, err
}

// SetStatus flips a listing from one status to another inside the caller's
// unit of work. It fails with InvalidState when the listing is not in from.
func SetStatus(ctx context.Context, tx store.Tx, id int64, from, to models.ListingStatus) error {
	ok, err := tx.SwapListingStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("set listing status: %w", err)
	}
	if !ok {
		return apperr.InvalidState("Listing is not available.")
	}
	return nil
}

// Get returns a listing with its gallery. Photos whose file is gone are
// dropped; an empty gallery shows the default image.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	var (
		l      models.Listing
		imgs   []models.Image
		owner  models.User
		rating models.RatingSummary
	)
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if l, err = tx.GetListing(ctx, id); err != nil {
			return err
		}
		if imgs, err = tx.ListImages(ctx, id); err != nil {
			return err
		}
		if owner, err = tx.GetUser(ctx, l.OwnerID); err != nil {
			return err
		}
		rating, err = tx.SellerSummary(ctx, l.OwnerID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return Detail{}, errNotFound
	}
	if err != nil {
		return Detail{}, fmt.Errorf("get listing: %w", err)
	}

	gallery := make([]string, 0, len(imgs))
	for _, img := range imgs {
		if s.images.Exists(img.FilePath) {
			gallery = append(gallery, img.FilePath)
		}
	}
	if len(gallery) == 0 {
		for range models.DefaultGallerySize {
			gallery = append(gallery, models.DefaultImage)
		}
	}

	return Detail{
		Summary: Summarize(s.images, l),
		Gallery: gallery,
		Seller: Seller{
			ID:        owner.ID,
			Username:  owner.Username,
			FirstName: owner.FirstName,
			Verified:  owner.Verified,
			Rating:    rating,
		},
	}, nil
}

// Summarize prepares a listing for a card view.
func Summarize(images ImageStore, l models.Listing) Summary {
	if !images.Exists(l.CoverImage) {
		l.CoverImage = models.DefaultImage
	}
	return Summary{Listing: l, Badges: l.Badges()}
}

// SummarizeAll applies Summarize to each listing.
func SummarizeAll(images ImageStore, ls []models.Listing) []Summary {
	out := make([]Summary, 0, len(ls))
	for _, l := range ls {
		out = append(out, Summarize(images, l))
	}
	return out
}

func (s *Service) list(ctx context.Context, f models.ListingFilter) ([]Summary, error) {
	var ls []models.Listing
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		ls, err = tx.ListListings(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return SummarizeAll(s.images, ls), nil
}

// ListByOwner returns the owner's listings, optionally filtered by status.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64, status models.ListingStatus) ([]Summary, error) {
	return s.list(ctx, models.ListingFilter{OwnerID: ownerID, Status: status})
}

// All returns every listing, optionally filtered by status, newest first.
func (s *Service) All(ctx context.Context, status models.ListingStatus) ([]Summary, error) {
	return s.list(ctx, models.ListingFilter{Status: status})
}

// Newest returns the most recently created active listings.
func (s *Service) Newest(ctx context.Context) ([]Summary, error) {
	return s.list(ctx, models.ListingFilter{Status: models.ListingActive, Limit: NewestLimit})
}

// Similar returns other active listings of the same make and model.
func (s *Service) Similar(ctx context.Context, id int64) ([]Summary, error) {
	var l models.Listing
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		l, err = tx.GetListing(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return s.list(ctx, models.ListingFilter{
		Status:    models.ListingActive,
		Make:      l.Make,
		Model:     l.Model,
		ExcludeID: id,
		Limit:     SimilarLimit,
	})
}

// Compare returns the active listings among ids, in the given order, keeping
// at most CompareLimit. Unknown and sold listings are skipped.
func (s *Service) Compare(ctx context.Context, ids []int64) ([]Summary, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("Select cars to compare first.")
	}
	if len(ids) > CompareLimit {
		ids = ids[:CompareLimit]
	}
	ls := make([]models.Listing, 0, len(ids))
	err := s.store.View(ctx, func(tx store.Tx) error {
		for _, id := range ids {
			l, err := tx.GetListing(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if l.Status == models.ListingActive {
				ls = append(ls, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compare listings: %w", err)
	}
	return SummarizeAll(s.images, ls), nil
}
