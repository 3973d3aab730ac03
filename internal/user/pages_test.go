package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/marketplace"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

type pagesFixture struct {
	store  store.Store
	users  *Service
	market *marketplace.Service
	pages  *Pages
	seller models.User
	buyer  models.User
}

func newPagesFixture(t *testing.T) *pagesFixture {
	t.Helper()
	s := store.NewMemory()
	f := &pagesFixture{store: s, users: NewService(s, nil), market: marketplace.NewService(s, nil)}
	f.pages = NewPages(f.users, listing.NewService(s, listing.NewDiskImages(t.TempDir())), f.market)

	ctx := context.Background()
	var err error
	f.seller, err = f.users.Register(ctx, registration())
	require.NoError(t, err)
	req := registration()
	req.Username, req.Email = "ben", "ben@example.com"
	f.buyer, err = f.users.Register(ctx, req)
	require.NoError(t, err)
	return f
}

func (f *pagesFixture) listing(t *testing.T, mileage int, price int64) models.Listing {
	t.Helper()
	l := models.Listing{
		OwnerID: f.seller.ID,
		Status:  models.ListingActive,
		Spec:    models.Spec{Make: "Audi", Model: "A4", Year: 2022, Mileage: mileage, Price: price},
	}
	require.NoError(t, f.store.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateListing(context.Background(), &l)
	}))
	return l
}

func TestSellerPageShowsActiveListingsAndRatedHistory(t *testing.T) {
	f := newPagesFixture(t)
	ctx := context.Background()

	onSale := f.listing(t, 20000, 9000)
	sold := f.listing(t, 90000, 25000)
	tr, err := f.market.Reserve(ctx, sold.ID, f.seller.ID, f.buyer.ID)
	require.NoError(t, err)
	_, err = f.market.Confirm(ctx, tr.ID, f.buyer.ID)
	require.NoError(t, err)
	_, err = f.market.Rate(ctx, tr.ID, f.buyer.ID, models.Scores{Reliability: 4, Accuracy: 4, Communication: 4, Product: 4}, "smooth")
	require.NoError(t, err)

	page, err := f.pages.Seller(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", page.Username)
	assert.Equal(t, 1, page.Rating.Count)
	require.Len(t, page.Listings, 1, "completed listings are not on sale")
	assert.Equal(t, onSale.ID, page.Listings[0].ID)
	assert.Equal(t, []string{"Low km", "Newer model", "Budget"}, page.Listings[0].Badges)
	require.Len(t, page.Sold, 1)
	require.NotNil(t, page.Sold[0].Rating)
	assert.Equal(t, "smooth", page.Sold[0].Rating.Comment)
	assert.Empty(t, page.Bought)

	buyer, err := f.pages.Buyer(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "ben", buyer.Username)
	require.Len(t, buyer.Purchases, 1)
	assert.Equal(t, tr.ID, buyer.Purchases[0].ID)
	require.NotNil(t, buyer.Purchases[0].Rating)
	assert.Empty(t, buyer.Sales)

	_, err = f.pages.Seller(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.pages.Buyer(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPublicPageRoutes(t *testing.T) {
	f := newPagesFixture(t)
	f.listing(t, 20000, 9000)

	e := echo.New()
	NewHandler(f.users, f.pages).Register(e.Group(""))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sellers/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Username string            `json:"username"`
		Listings []json.RawMessage `json:"listings"`
		Sold     []json.RawMessage `json:"sold"`
		Bought   []json.RawMessage `json:"bought"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "ana", page.Username)
	assert.Len(t, page.Listings, 1)
	assert.NotNil(t, page.Sold)
	assert.NotNil(t, page.Bought)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buyers/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sellers/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
