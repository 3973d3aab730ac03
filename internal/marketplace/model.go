// Package marketplace runs the sale lifecycle of a listing: reservation by
// the seller, confirmation by the buyer, cancellation by either party, and
// the buyer's rating of a completed sale.
package marketplace

import (
	"log"
	"time"

	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

type Service struct {
	store  store.Store
	notify alerts.Notifier
	now    func() time.Time
}

func NewService(s store.Store, notify alerts.Notifier) *Service {
	if notify == nil {
		notify = alerts.Nop{}
	}
	return &Service{store: s, notify: notify, now: func() time.Time { return time.Now().UTC() }}
}

// ReserveRequest names the buyer a seller reserves a listing for
type ReserveRequest struct {
	BuyerID int64 `json:"buyer_id"`
}

// VerifyRequest is the seller's verification opt-in
type VerifyRequest struct {
	Agree bool `json:"agree"`
}

// History splits a user's transactions by role
type History struct {
	Sold   []models.TransactionSummary `json:"sold"`
	Bought []models.TransactionSummary `json:"bought"`
}

// notifyFailed logs and counts a notification that could not be enqueued.
// The state change it reports has already committed.
func notifyFailed(kind string, err error) {
	if err == nil {
		return
	}
	log.Printf("[notify][ERROR] %s enqueue failed: %v", kind, err)
	metrics.NotifyErrors.WithLabelValues(kind).Inc()
}
