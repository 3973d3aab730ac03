package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

var errTransactionNotFound = apperr.NotFound("Transaction not found.")

// =========================
// Reserve - seller reserves an active listing for a buyer
// =========================
func (s *Service) Reserve(ctx context.Context, listingID, callerID, buyerID int64) (tr models.Transaction, err error) {
	defer func() { metrics.TransactionsTotal.WithLabelValues("reserve", metrics.Result(err)).Inc() }()

	var (
		l     models.Listing
		buyer models.User
	)
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		l, err = tx.GetListing(ctx, listingID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Listing not found.")
		}
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		if l.OwnerID != callerID {
			return apperr.Forbidden("You can only update your own listings.")
		}
		if buyerID == callerID || buyerID <= 0 {
			return apperr.Validation("Please select a valid buyer.")
		}
		buyer, err = tx.GetUser(ctx, buyerID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Validation("Buyer not found.")
		}
		if err != nil {
			return fmt.Errorf("get buyer: %w", err)
		}
		if l.Status != models.ListingActive {
			return apperr.InvalidState("Listing is not available.")
		}

		// the swap is the real guard; the check above only gives a clearer
		// answer in the common case
		if err := listing.SetStatus(ctx, tx, listingID, models.ListingActive, models.ListingCompleted); err != nil {
			return err
		}

		tr = models.Transaction{
			ListingID: listingID,
			SellerID:  callerID,
			BuyerID:   buyerID,
			Status:    models.TransactionPending,
			UpdatedAt: s.now(),
		}
		err = tx.CreateTransaction(ctx, &tr)
		if errors.Is(err, store.ErrConflict) {
			return apperr.Validation("Listing already has an open transaction.")
		}
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	notifyFailed(alerts.TaskSaleReserved, s.notify.SaleReserved(ctx, alerts.SaleEvent{Transaction: tr, Listing: l, To: buyer}))
	return tr, nil
}

// =========================
// Cancel - either party cancels; the listing goes back on sale
// =========================
func (s *Service) Cancel(ctx context.Context, transactionID, callerID int64) (tr models.Transaction, err error) {
	defer func() { metrics.TransactionsTotal.WithLabelValues("cancel", metrics.Result(err)).Inc() }()

	var (
		l       models.Listing
		other   models.User
		changed bool
	)
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		tr, err = tx.GetTransaction(ctx, transactionID)
		if errors.Is(err, store.ErrNotFound) {
			return errTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if !tr.IsParty(callerID) {
			return apperr.Forbidden("You can only cancel your own transaction.")
		}
		if tr.Status == models.TransactionCanceled {
			return nil
		}

		at := s.now()
		ok, err := tx.SwapTransactionStatus(ctx, tr.ID,
			[]models.TransactionStatus{models.TransactionPending, models.TransactionCompleted},
			models.TransactionCanceled, at)
		if err != nil {
			return fmt.Errorf("cancel transaction: %w", err)
		}
		if !ok {
			// lost to a concurrent cancel, which already reopened the listing
			tr.Status = models.TransactionCanceled
			return nil
		}
		// a listing that is already active stays as it is
		if _, err := tx.SwapListingStatus(ctx, tr.ListingID, models.ListingCompleted, models.ListingActive); err != nil {
			return fmt.Errorf("reopen listing: %w", err)
		}
		// a canceled sale no longer counts toward the seller's rating
		if err := tx.DeleteTransactionRating(ctx, tr.ID); err != nil {
			return fmt.Errorf("delete rating: %w", err)
		}
		tr.Status = models.TransactionCanceled
		tr.UpdatedAt = at
		changed = true

		if l, err = tx.GetListing(ctx, tr.ListingID); err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		otherID := tr.SellerID
		if callerID == tr.SellerID {
			otherID = tr.BuyerID
		}
		if other, err = tx.GetUser(ctx, otherID); err != nil {
			return fmt.Errorf("get counterpart: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if changed {
		notifyFailed(alerts.TaskSaleCanceled, s.notify.SaleCanceled(ctx, alerts.SaleEvent{Transaction: tr, Listing: l, To: other}))
	}
	return tr, nil
}

// History returns the user's sales and purchases, most recent change first.
func (s *Service) History(ctx context.Context, userID int64) (History, error) {
	var all []models.TransactionSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		all, err = tx.ListUserTransactions(ctx, userID)
		return err
	})
	if err != nil {
		return History{}, fmt.Errorf("list transactions: %w", err)
	}

	h := History{Sold: []models.TransactionSummary{}, Bought: []models.TransactionSummary{}}
	for _, t := range all {
		if t.SellerID == userID {
			h.Sold = append(h.Sold, t)
		} else {
			h.Bought = append(h.Bought, t)
		}
	}
	return h, nil
}
