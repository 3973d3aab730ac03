package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

// Confirm - buyer confirms a pending purchase. Confirming a completed
// transaction again changes nothing.
func (s *Service) Confirm(ctx context.Context, transactionID, callerID int64) (tr models.Transaction, err error) {
	defer func() { metrics.TransactionsTotal.WithLabelValues("confirm", metrics.Result(err)).Inc() }()

	var (
		l           models.Listing
		seller      models.User
		changed     bool
		verifiedNow bool
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
		if callerID != tr.BuyerID {
			return apperr.Forbidden("You can only confirm your own purchase.")
		}
		switch tr.Status {
		case models.TransactionCanceled:
			return apperr.InvalidState("Transaction was canceled.")
		case models.TransactionCompleted:
			return nil
		}

		at := s.now()
		ok, err := tx.SwapTransactionStatus(ctx, tr.ID,
			[]models.TransactionStatus{models.TransactionPending}, models.TransactionCompleted, at)
		if err != nil {
			return fmt.Errorf("confirm transaction: %w", err)
		}
		if !ok {
			return apperr.InvalidState("Transaction is no longer pending.")
		}
		tr.Status = models.TransactionCompleted
		tr.UpdatedAt = at
		changed = true

		if seller, err = tx.GetUser(ctx, tr.SellerID); err != nil {
			return fmt.Errorf("get seller: %w", err)
		}
		if verifiedNow, err = checkVerification(ctx, tx, seller); err != nil {
			return err
		}
		seller.Verified = seller.Verified || verifiedNow

		l, err = tx.GetListing(ctx, tr.ListingID)
		if err != nil {
			return fmt.Errorf("get listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if changed {
		notifyFailed(alerts.TaskSaleCompleted, s.notify.SaleCompleted(ctx, alerts.SaleEvent{Transaction: tr, Listing: l, To: seller}))
	}
	if verifiedNow {
		log.Printf("[marketplace] seller %d verified after sale %d", seller.ID, tr.ID)
		notifyFailed(alerts.TaskSellerVerified, s.notify.SellerVerified(ctx, seller))
	}
	return tr, nil
}

// checkVerification grants the verified flag to an opted-in seller who
// reached the completed-sales threshold. It never clears the flag.
func checkVerification(ctx context.Context, tx store.Tx, u models.User) (bool, error) {
	if u.Verified || !u.VerificationRequested {
		return false, nil
	}
	n, err := tx.CountCompletedSales(ctx, u.ID)
	if err != nil {
		return false, fmt.Errorf("count sales: %w", err)
	}
	if n < models.VerificationThreshold {
		return false, nil
	}
	if err := tx.SetVerified(ctx, u.ID, true); err != nil {
		return false, fmt.Errorf("set verified: %w", err)
	}
	return true, nil
}

// RequestVerification records the user's opt-in and verifies them when they
// already have enough completed sales.
func (s *Service) RequestVerification(ctx context.Context, userID int64, agree bool) (u models.User, err error) {
	if !agree {
		return models.User{}, apperr.Validation("Please confirm the verification terms.")
	}

	var verifiedNow bool
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("User not found.")
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !u.VerificationRequested {
			if err := tx.SetVerificationRequested(ctx, userID); err != nil {
				return fmt.Errorf("request verification: %w", err)
			}
			u.VerificationRequested = true
		}
		if verifiedNow, err = checkVerification(ctx, tx, u); err != nil {
			return err
		}
		u.Verified = u.Verified || verifiedNow
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	if verifiedNow {
		notifyFailed(alerts.TaskSellerVerified, s.notify.SellerVerified(ctx, u))
	}
	return u, nil
}
