package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

type fixture struct {
	svc   *Service
	store store.Store
	user  models.User
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemory(), clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(f.store)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.user = models.User{Username: "bea", Email: "bea@example.com"}
	require.NoError(t, f.store.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(context.Background(), &f.user)
	}))
	return f
}

func (f *fixture) listing(t *testing.T, status models.ListingStatus) int64 {
	t.Helper()
	l := models.Listing{OwnerID: f.user.ID, Status: status, Spec: models.Spec{Make: "Opel", Model: "Astra", Year: 2015}}
	require.NoError(t, f.store.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateListing(context.Background(), &l)
	}))
	return l.ID
}

func TestToggleIsSelfInverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.listing(t, models.ListingActive)

	fav, err := f.svc.Toggle(ctx, f.user.ID, id)
	require.NoError(t, err)
	assert.True(t, fav)

	ids, err := f.svc.FavoriteIDs(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	fav, err = f.svc.Toggle(ctx, f.user.ID, id)
	require.NoError(t, err)
	assert.False(t, fav)

	ids, err = f.svc.FavoriteIDs(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleRequiresActiveListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sold := f.listing(t, models.ListingCompleted)

	_, err := f.svc.Toggle(ctx, f.user.ID, sold)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Toggle(ctx, f.user.ID, 12345)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFavoritesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.listing(t, models.ListingActive)
	b := f.listing(t, models.ListingActive)

	for _, id := range []int64{a, b} {
		_, err := f.svc.Toggle(ctx, f.user.ID, id)
		require.NoError(t, err)
	}
	ls, err := f.svc.Favorites(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Equal(t, b, ls[0].ID)
	assert.Equal(t, a, ls[1].ID)
}

func TestRecordViewIgnoresZeroIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.listing(t, models.ListingActive)

	require.NoError(t, f.svc.RecordView(ctx, 0, id))
	require.NoError(t, f.svc.RecordView(ctx, f.user.ID, 0))

	ls, err := f.svc.RecentlyViewed(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, ls)
}

func TestRecentlyViewedOrderAndCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < RecentLimit+2; i++ {
		id := f.listing(t, models.ListingActive)
		ids = append(ids, id)
		require.NoError(t, f.svc.RecordView(ctx, f.user.ID, id))
	}
	// revisiting moves a listing back to the front
	require.NoError(t, f.svc.RecordView(ctx, f.user.ID, ids[0]))

	ls, err := f.svc.RecentlyViewed(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, ls, RecentLimit)
	assert.Equal(t, ids[0], ls[0].ID)
	assert.Equal(t, ids[len(ids)-1], ls[1].ID)

	// sold listings drop out of the feed
	require.NoError(t, f.store.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.SwapListingStatus(ctx, ids[0], models.ListingActive, models.ListingCompleted)
		return err
	}))
	ls, err = f.svc.RecentlyViewed(ctx, f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ids[0], ls[0].ID)
}
