// Package store is the persistence boundary of the marketplace. Services run
// their work through Store.InTx so that multi-row effects commit together or
// not at all.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sudo-init-do/carhub/internal/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write would break a uniqueness rule.
	ErrConflict = errors.New("store: conflict")
	// ErrReferenced is returned when a row is written or removed out of
	// dependency order.
	ErrReferenced = errors.New("store: referenced row missing or still in use")
)

// Store opens units of work against the backing database.
type Store interface {
	// InTx runs fn atomically. Any error returned by fn rolls back every
	// write fn made.
	InTx(ctx context.Context, fn func(Tx) error) error
	// View runs read-only work. Writes made through View are not guaranteed
	// to be atomic.
	View(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the query surface available inside a unit of work.
type Tx interface {
	Users
	Listings
	Viewers
	Transactions
	Ratings
	Threads
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	// GetUserByLogin matches either username or email.
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserContacts(ctx context.Context, id int64, phone, city, country string) error
	SetVerificationRequested(ctx context.Context, id int64) error
	SetVerified(ctx context.Context, id int64, verified bool) error
	SetAdminByEmail(ctx context.Context, email string) (models.User, error)
}

type Listings interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id int64) (models.Listing, error)
	// LockListing reads a listing and holds its row against concurrent
	// writers until the unit of work ends.
	LockListing(ctx context.Context, id int64) (models.Listing, error)
	ListListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, error)
	// UpdateListingSpec rewrites the spec only while the listing is active
	// and reports whether a row changed.
	UpdateListingSpec(ctx context.Context, id int64, spec models.Spec) (bool, error)
	// SwapListingStatus moves a listing from one status to another and
	// reports whether it was in the expected status.
	SwapListingStatus(ctx context.Context, id int64, from, to models.ListingStatus) (bool, error)
	UpdateOwnerContacts(ctx context.Context, ownerID int64, phone, city, country string) error
	DeleteListing(ctx context.Context, id int64) error

	AddImage(ctx context.Context, img *models.Image) error
	ListImages(ctx context.Context, listingID int64) ([]models.Image, error)
	DeleteImages(ctx context.Context, listingID int64) error
}

type Viewers interface {
	AddFavorite(ctx context.Context, userID, listingID int64, at time.Time) error
	// RemoveFavorite reports whether the pair existed.
	RemoveFavorite(ctx context.Context, userID, listingID int64) (bool, error)
	ListFavorites(ctx context.Context, userID int64) ([]models.Listing, error)
	FavoriteIDs(ctx context.Context, userID int64) ([]int64, error)
	DeleteFavorites(ctx context.Context, listingID int64) error

	UpsertRecentView(ctx context.Context, userID, listingID int64, at time.Time) error
	ListRecentViews(ctx context.Context, userID int64, limit int) ([]models.Listing, error)
	DeleteRecentViews(ctx context.Context, listingID int64) error
}

type Transactions interface {
	// CreateTransaction fails with ErrConflict when the listing already has a
	// non-canceled transaction.
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id int64) (models.Transaction, error)
	// SwapTransactionStatus moves a transaction to `to` when its current
	// status is one of `from`.
	SwapTransactionStatus(ctx context.Context, id int64, from []models.TransactionStatus, to models.TransactionStatus, at time.Time) (bool, error)
	CountCompletedSales(ctx context.Context, sellerID int64) (int, error)
	ListUserTransactions(ctx context.Context, userID int64) ([]models.TransactionSummary, error)
	DeleteTransactions(ctx context.Context, listingID int64) error
}

type Ratings interface {
	// UpsertRating inserts or replaces scores and comment keyed by transaction.
	// A replaced rating keeps its id and created_at; r is refreshed with both.
	UpsertRating(ctx context.Context, r *models.Rating) error
	GetRatingByTransaction(ctx context.Context, transactionID int64) (models.Rating, error)
	ListRatings(ctx context.Context) ([]models.Rating, error)
	SellerSummary(ctx context.Context, sellerID int64) (models.RatingSummary, error)
	DeleteRating(ctx context.Context, id int64) error
	// DeleteTransactionRating removes the rating of one transaction, if any.
	DeleteTransactionRating(ctx context.Context, transactionID int64) error
	// DeleteListingRatings removes ratings of every transaction of a listing.
	DeleteListingRatings(ctx context.Context, listingID int64) error
}

type Threads interface {
	FindThread(ctx context.Context, listingID, sellerID, buyerID int64) (models.Thread, error)
	CreateThread(ctx context.Context, t *models.Thread) error
	GetThread(ctx context.Context, id int64) (models.Thread, error)
	ListThreadSummaries(ctx context.Context, userID int64) ([]models.ThreadSummary, error)
	DeleteThreads(ctx context.Context, listingID int64) error

	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, threadID int64) ([]models.Message, error)
	// MarkThreadRead stamps every unread message for recipientID in the thread
	// with the same time and returns how many changed.
	MarkThreadRead(ctx context.Context, threadID, recipientID int64, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	DeleteListingMessages(ctx context.Context, listingID int64) error
}
