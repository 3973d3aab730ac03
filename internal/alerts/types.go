package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail   = "email:welcome"
	TaskSaleReserved   = "email:sale_reserved"
	TaskSaleCompleted  = "email:sale_completed"
	TaskSaleCanceled   = "email:sale_canceled"
	TaskSellerVerified = "email:seller_verified"
	TaskMessageNew     = "email:message_new"
)

const queueEmails = "emails"

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   int64         `json:"user_id"`
	Name     string        `json:"name"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Sale payload, used for reserved, completed and canceled transactions
type SalePayload struct {
	TransactionID int64         `json:"transaction_id"`
	ListingID     int64         `json:"listing_id"`
	BuyerID       int64         `json:"buyer_id"`
	SellerID      int64         `json:"seller_id"`
	Car           string        `json:"car"`
	Envelope      EmailEnvelope `json:"envelope"`
	SentAt        time.Time     `json:"sent_at"`
}

// Seller verified payload
type SellerVerifiedPayload struct {
	UserID   int64         `json:"user_id"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Message new payload (sent to recipient on new message)
type MessageNewPayload struct {
	ThreadID    int64         `json:"thread_id"`
	MessageID   int64         `json:"message_id"`
	SenderID    int64         `json:"sender_id"`
	RecipientID int64         `json:"recipient_id"`
	Envelope    EmailEnvelope `json:"envelope"`
	SentAt      time.Time     `json:"sent_at"`
}
