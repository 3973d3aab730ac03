package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/validation"
)

var errNotRateable = apperr.InvalidState("You can only rate your own completed purchases.")

// Rate stores the buyer's rating of a completed transaction. Rating again
// replaces the scores and comment but keeps the original rating time.
func (s *Service) Rate(ctx context.Context, transactionID, raterID int64, scores models.Scores, comment string) (r models.Rating, err error) {
	defer func() { metrics.RatingsTotal.WithLabelValues("rate", metrics.Result(err)).Inc() }()

	if err = validation.Struct(scores); err != nil {
		return models.Rating{}, err
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return models.Rating{}, apperr.Validation(fmt.Sprintf("comment too long (max %d characters)", MaxCommentLength))
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		tr, err := tx.GetTransaction(ctx, transactionID)
		if errors.Is(err, store.ErrNotFound) {
			return errNotRateable
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if tr.BuyerID != raterID || tr.Status != models.TransactionCompleted {
			return errNotRateable
		}

		r = models.Rating{
			TransactionID: tr.ID,
			SellerID:      tr.SellerID,
			BuyerID:       tr.BuyerID,
			Scores:        scores,
			Comment:       comment,
			CreatedAt:     s.now(),
		}
		if err := tx.UpsertRating(ctx, &r); err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Rating{}, err
	}
	return r, nil
}

// SellerRating aggregates every rating of the seller.
func (s *Service) SellerRating(ctx context.Context, sellerID int64) (models.RatingSummary, error) {
	var sum models.RatingSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, sellerID); err != nil {
			return err
		}
		var err error
		sum, err = tx.SellerSummary(ctx, sellerID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.RatingSummary{}, apperr.NotFound("Seller not found.")
	}
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("seller rating: %w", err)
	}
	return sum, nil
}

// ListRatings returns every rating, newest first.
func (s *Service) ListRatings(ctx context.Context) ([]models.Rating, error) {
	var out []models.Rating
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListRatings(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return out, nil
}

// DeleteRating removes a rating. The transaction it belongs to is untouched.
func (s *Service) DeleteRating(ctx context.Context, id int64) (err error) {
	defer func() { metrics.RatingsTotal.WithLabelValues("delete", metrics.Result(err)).Inc() }()

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteRating(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Rating not found.")
	}
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}
