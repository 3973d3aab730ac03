package models

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCanceled  TransactionStatus = "canceled"
)

// Transaction represents a sale of one listing from a seller to a buyer
type Transaction struct {
	ID        int64             `json:"id"`
	ListingID int64             `json:"listing_id"`
	SellerID  int64             `json:"seller_id"`
	BuyerID   int64             `json:"buyer_id"`
	Status    TransactionStatus `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsParty reports whether userID is the buyer or the seller.
func (t Transaction) IsParty(userID int64) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// TransactionSummary is a transaction joined with the car it sold
type TransactionSummary struct {
	Transaction
	Make   string  `json:"make"`
	Model  string  `json:"model"`
	Year   int     `json:"year"`
	Price  int64   `json:"price"`
	Rating *Rating `json:"rating,omitempty"`
}

// Scores are the four rating dimensions, each between 1 and 5
type Scores struct {
	Reliability   int `json:"reliability" validate:"min=1,max=5"`
	Accuracy      int `json:"accuracy" validate:"min=1,max=5"`
	Communication int `json:"communication" validate:"min=1,max=5"`
	Product       int `json:"product" validate:"min=1,max=5"`
}

// Mean is the per-rating score used by seller aggregates.
func (s Scores) Mean() float64 {
	return float64(s.Reliability+s.Accuracy+s.Communication+s.Product) / 4.0
}

// Rating is a buyer's feedback on one completed transaction
type Rating struct {
	ID            int64 `json:"id"`
	TransactionID int64 `json:"transaction_id"`
	SellerID      int64 `json:"seller_id"`
	BuyerID       int64 `json:"buyer_id"`
	Scores
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary is a seller's aggregate rating, computed on read
type RatingSummary struct {
	SellerID int64   `json:"seller_id"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}
