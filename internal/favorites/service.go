// Package favorites tracks the listings a user saved and the ones they looked
// at recently.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

// RecentLimit caps the recently viewed feed.
const RecentLimit = 8

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Toggle flips the favorite state of an active listing and reports whether
// it is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, userID, listingID int64) (bool, error) {
	var favorited bool
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && l.Status != models.ListingActive) {
			return apperr.NotFound("Listing not found.")
		}
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}

		removed, err := tx.RemoveFavorite(ctx, userID, listingID)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		if removed {
			favorited = false
			return nil
		}
		if err := tx.AddFavorite(ctx, userID, listingID, s.now()); err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		favorited = true
		return nil
	})
	return favorited, err
}

// RecordView stamps the user's last view of a listing. Zero ids are ignored.
func (s *Service) RecordView(ctx context.Context, userID, listingID int64) error {
	if userID == 0 || listingID == 0 {
		return nil
	}
	return s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.UpsertRecentView(ctx, userID, listingID, s.now()); err != nil {
			return fmt.Errorf("record view: %w", err)
		}
		return nil
	})
}

// RecentlyViewed returns active listings by last view, newest first.
func (s *Service) RecentlyViewed(ctx context.Context, userID int64) ([]models.Listing, error) {
	var out []models.Listing
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListRecentViews(ctx, userID, RecentLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recent views: %w", err)
	}
	return out, nil
}

// Favorites returns the user's active favorites, newest favorite first.
func (s *Service) Favorites(ctx context.Context, userID int64) ([]models.Listing, error) {
	var out []models.Listing
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListFavorites(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("favorites: %w", err)
	}
	return out, nil
}

func (s *Service) FavoriteIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		ids, err = tx.FavoriteIDs(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("favorite ids: %w", err)
	}
	return ids, nil
}
