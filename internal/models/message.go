package models

import "time"

// Thread is a conversation about one listing between its seller and a buyer
type Thread struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	SellerID  int64     `json:"seller_id"`
	BuyerID   int64     `json:"buyer_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IsParty reports whether userID takes part in the thread.
func (t Thread) IsParty(userID int64) bool {
	return userID == t.SellerID || userID == t.BuyerID
}

// Counterpart returns the other party of the thread.
func (t Thread) Counterpart(userID int64) int64 {
	if userID == t.SellerID {
		return t.BuyerID
	}
	return t.SellerID
}

// Message is one entry of a thread
type Message struct {
	ID          int64      `json:"id"`
	ThreadID    int64      `json:"thread_id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at"`
}

// ThreadSummary is an inbox row
type ThreadSummary struct {
	Thread
	LastMessage string `json:"last_message"`
	UnreadCount int    `json:"unread_count"`
}
