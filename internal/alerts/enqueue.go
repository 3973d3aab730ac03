package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sudo-init-do/carhub/internal/models"
)

// SaleEvent describes a transaction change and who should hear about it.
type SaleEvent struct {
	Transaction models.Transaction
	Listing     models.Listing
	To          models.User
}

// MessageEvent describes a new message for its recipient.
type MessageEvent struct {
	Message models.Message
	From    models.User
	To      models.User
}

// Notifier is what the services call after a commit. Delivery is best effort;
// callers log errors and move on.
type Notifier interface {
	Welcome(ctx context.Context, u models.User) error
	SaleReserved(ctx context.Context, ev SaleEvent) error
	SaleCompleted(ctx context.Context, ev SaleEvent) error
	SaleCanceled(ctx context.Context, ev SaleEvent) error
	SellerVerified(ctx context.Context, u models.User) error
	MessageNew(ctx context.Context, ev MessageEvent) error
}

// Nop drops every notification. Used when alerts are disabled.
type Nop struct{}

func (Nop) Welcome(context.Context, models.User) error        { return nil }
func (Nop) SaleReserved(context.Context, SaleEvent) error     { return nil }
func (Nop) SaleCompleted(context.Context, SaleEvent) error    { return nil }
func (Nop) SaleCanceled(context.Context, SaleEvent) error     { return nil }
func (Nop) SellerVerified(context.Context, models.User) error { return nil }
func (Nop) MessageNew(context.Context, MessageEvent) error    { return nil }

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules e-mail tasks on the asynq "emails" queue.
type Enqueuer struct {
	client taskClient
	closer func() error
	appURL string
}

func NewEnqueuer(opt asynq.RedisClientOpt, appURL string) *Enqueuer {
	c := asynq.NewClient(opt)
	return &Enqueuer{client: c, closer: c.Close, appURL: appURL}
}

// Close releases the underlying client.
func (e *Enqueuer) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", taskType, err)
	}
	task := asynq.NewTask(taskType, b)
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(queueEmails),
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(5),
	)
	return err
}

func carTitle(l models.Listing) string {
	return fmt.Sprintf("%d %s %s", l.Year, l.Make, l.Model)
}

// Welcome schedules a welcome email to the user
func (e *Enqueuer) Welcome(ctx context.Context, u models.User) error {
	env := EmailEnvelope{
		To:      u.Email,
		Subject: fmt.Sprintf("Welcome to CarHub, %s!", u.FirstName),
		Body:    fmt.Sprintf("Hi %s, thanks for joining CarHub.\n\nStart browsing: %s\n", u.FirstName, e.appURL),
	}
	return e.enqueue(ctx, TaskWelcomeEmail, WelcomeEmailPayload{
		UserID: u.ID, Name: u.FirstName, Envelope: env, SentAt: time.Now(),
	})
}

func (e *Enqueuer) sale(ctx context.Context, taskType string, ev SaleEvent, subject, body string) error {
	return e.enqueue(ctx, taskType, SalePayload{
		TransactionID: ev.Transaction.ID,
		ListingID:     ev.Listing.ID,
		BuyerID:       ev.Transaction.BuyerID,
		SellerID:      ev.Transaction.SellerID,
		Car:           carTitle(ev.Listing),
		Envelope:      EmailEnvelope{To: ev.To.Email, Subject: subject, Body: body},
		SentAt:        time.Now(),
	})
}

// SaleReserved tells the buyer a seller reserved a car for them
func (e *Enqueuer) SaleReserved(ctx context.Context, ev SaleEvent) error {
	car := carTitle(ev.Listing)
	return e.sale(ctx, TaskSaleReserved, ev,
		"A car has been reserved for you",
		fmt.Sprintf("The seller reserved the %s for you. Confirm the purchase here: %s/transactions/%d",
			car, e.appURL, ev.Transaction.ID))
}

// SaleCompleted tells the seller the buyer confirmed
func (e *Enqueuer) SaleCompleted(ctx context.Context, ev SaleEvent) error {
	return e.sale(ctx, TaskSaleCompleted, ev,
		"Your sale is complete",
		fmt.Sprintf("The buyer confirmed the purchase of your %s.", carTitle(ev.Listing)))
}

// SaleCanceled tells the other party the transaction was canceled
func (e *Enqueuer) SaleCanceled(ctx context.Context, ev SaleEvent) error {
	return e.sale(ctx, TaskSaleCanceled, ev,
		"A transaction was canceled",
		fmt.Sprintf("The transaction for the %s was canceled. The car is listed again.", carTitle(ev.Listing)))
}

// SellerVerified congratulates a newly verified seller
func (e *Enqueuer) SellerVerified(ctx context.Context, u models.User) error {
	return e.enqueue(ctx, TaskSellerVerified, SellerVerifiedPayload{
		UserID: u.ID,
		Envelope: EmailEnvelope{
			To:      u.Email,
			Subject: "You are now a verified seller",
			Body:    fmt.Sprintf("Hi %s, your listings now carry the verified seller badge.", u.FirstName),
		},
		SentAt: time.Now(),
	})
}

// MessageNew notifies the recipient of a new message
func (e *Enqueuer) MessageNew(ctx context.Context, ev MessageEvent) error {
	return e.enqueue(ctx, TaskMessageNew, MessageNewPayload{
		ThreadID:    ev.Message.ThreadID,
		MessageID:   ev.Message.ID,
		SenderID:    ev.Message.SenderID,
		RecipientID: ev.Message.RecipientID,
		Envelope: EmailEnvelope{
			To:      ev.To.Email,
			Subject: fmt.Sprintf("New message from %s", ev.From.Username),
			Body:    fmt.Sprintf("%s wrote:\n\n%s\n\nReply: %s/threads/%d", ev.From.Username, ev.Message.Body, e.appURL, ev.Message.ThreadID),
		},
		SentAt: time.Now(),
	})
}
