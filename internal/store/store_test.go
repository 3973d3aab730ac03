package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/models"
)

// runSuite exercises the behaviour both Store implementations must share.
func runSuite(t *testing.T, s Store) {
	ctx := context.Background()

	var seller, buyer models.User
	var car models.Listing
	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		seller = models.User{FirstName: "Sam", LastName: "Seller", Username: "seller", Email: "seller@example.com", PasswordHash: "x"}
		buyer = models.User{FirstName: "Bea", LastName: "Buyer", Username: "buyer", Email: "buyer@example.com", PasswordHash: "x"}
		if err := tx.CreateUser(ctx, &seller); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &buyer); err != nil {
			return err
		}
		car = models.Listing{OwnerID: seller.ID, Status: models.ListingActive, Spec: models.Spec{
			Make: "Audi", Model: "A4", Year: 2019, Mileage: 80000, Price: 15000, Color: "Black",
			Fuel: "Diesel", Transmission: "Manual", BodyStyle: "Sedan", Description: "one owner",
		}}
		return tx.CreateListing(ctx, &car)
	}))

	t.Run("duplicate user is a conflict", func(t *testing.T) {
		err := s.InTx(ctx, func(tx Tx) error {
			dup := models.User{FirstName: "x", LastName: "y", Username: "seller", Email: "other@example.com", PasswordHash: "x"}
			return tx.CreateUser(ctx, &dup)
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("email uniqueness ignores case", func(t *testing.T) {
		err := s.InTx(ctx, func(tx Tx) error {
			dup := models.User{FirstName: "x", LastName: "y", Username: "seller2", Email: "Seller@Example.com", PasswordHash: "x"}
			return tx.CreateUser(ctx, &dup)
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("lock listing reads the row", func(t *testing.T) {
		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			l, err := tx.LockListing(ctx, car.ID)
			require.NoError(t, err)
			assert.Equal(t, seller.ID, l.OwnerID)
			_, err = tx.LockListing(ctx, car.ID+1000)
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		}))
	})

	t.Run("failed unit rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.InTx(ctx, func(tx Tx) error {
			ok, err := tx.SwapListingStatus(ctx, car.ID, models.ListingActive, models.ListingCompleted)
			require.NoError(t, err)
			require.True(t, ok)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			l, err := tx.GetListing(ctx, car.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ListingActive, l.Status)
			return nil
		}))
	})

	t.Run("status swap only matches expected status", func(t *testing.T) {
		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			ok, err := tx.SwapListingStatus(ctx, car.ID, models.ListingCompleted, models.ListingActive)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		}))
	})

	t.Run("one live transaction per listing", func(t *testing.T) {
		now := time.Now().UTC()
		var first models.Transaction
		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			first = models.Transaction{ListingID: car.ID, SellerID: seller.ID, BuyerID: buyer.ID, Status: models.TransactionPending, UpdatedAt: now}
			return tx.CreateTransaction(ctx, &first)
		}))

		err := s.InTx(ctx, func(tx Tx) error {
			second := models.Transaction{ListingID: car.ID, SellerID: seller.ID, BuyerID: buyer.ID, Status: models.TransactionPending, UpdatedAt: now}
			return tx.CreateTransaction(ctx, &second)
		})
		assert.ErrorIs(t, err, ErrConflict)

		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			ok, err := tx.SwapTransactionStatus(ctx, first.ID,
				[]models.TransactionStatus{models.TransactionPending, models.TransactionCompleted},
				models.TransactionCanceled, now)
			require.NoError(t, err)
			assert.True(t, ok)
			again := models.Transaction{ListingID: car.ID, SellerID: seller.ID, BuyerID: buyer.ID, Status: models.TransactionPending, UpdatedAt: now}
			return tx.CreateTransaction(ctx, &again)
		}))
	})

	t.Run("rating upsert keeps a single row", func(t *testing.T) {
		var txID int64
		require.NoError(t, s.View(ctx, func(tx Tx) error {
			hist, err := tx.ListUserTransactions(ctx, buyer.ID)
			require.NoError(t, err)
			require.NotEmpty(t, hist)
			txID = hist[0].ID
			return nil
		}))

		first := time.Now().UTC().Truncate(time.Millisecond)
		var ids []int64
		for i, score := range []int{2, 4} {
			require.NoError(t, s.InTx(ctx, func(tx Tx) error {
				r := models.Rating{TransactionID: txID, SellerID: seller.ID, BuyerID: buyer.ID,
					CreatedAt: first.Add(time.Duration(i) * time.Hour),
					Scores:    models.Scores{Reliability: score, Accuracy: score, Communication: score, Product: score}}
				if err := tx.UpsertRating(ctx, &r); err != nil {
					return err
				}
				assert.True(t, first.Equal(r.CreatedAt), "created_at is kept on replace")
				ids = append(ids, r.ID)
				return nil
			}))
		}
		assert.Equal(t, ids[0], ids[1])

		require.NoError(t, s.View(ctx, func(tx Tx) error {
			sum, err := tx.SellerSummary(ctx, seller.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, sum.Count)
			assert.InDelta(t, 4.0, sum.Average, 0.0001)

			r, err := tx.GetRatingByTransaction(ctx, txID)
			require.NoError(t, err)
			assert.True(t, first.Equal(r.CreatedAt))
			return nil
		}))

		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			require.NoError(t, tx.DeleteTransactionRating(ctx, txID))
			require.NoError(t, tx.DeleteTransactionRating(ctx, txID), "no rating left is fine")
			sum, err := tx.SellerSummary(ctx, seller.ID)
			require.NoError(t, err)
			assert.Zero(t, sum.Count)
			return nil
		}))
	})

	t.Run("thread triple is unique and read marking is bulk", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Millisecond)
		var th models.Thread
		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			th = models.Thread{ListingID: car.ID, SellerID: seller.ID, BuyerID: buyer.ID, CreatedAt: at}
			if err := tx.CreateThread(ctx, &th); err != nil {
				return err
			}
			for _, body := range []string{"hi", "still there?"} {
				m := models.Message{ThreadID: th.ID, SenderID: buyer.ID, RecipientID: seller.ID, Body: body, CreatedAt: at}
				if err := tx.CreateMessage(ctx, &m); err != nil {
					return err
				}
			}
			return nil
		}))

		err := s.InTx(ctx, func(tx Tx) error {
			dup := models.Thread{ListingID: car.ID, SellerID: seller.ID, BuyerID: buyer.ID, CreatedAt: at}
			return tx.CreateThread(ctx, &dup)
		})
		assert.ErrorIs(t, err, ErrConflict)

		readAt := at.Add(time.Minute)
		require.NoError(t, s.InTx(ctx, func(tx Tx) error {
			n, err := tx.MarkThreadRead(ctx, th.ID, seller.ID, readAt)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			msgs, err := tx.ListMessages(ctx, th.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "hi", msgs[0].Body)
			assert.Equal(t, "still there?", msgs[1].Body)
			for _, m := range msgs {
				require.NotNil(t, m.ReadAt)
				assert.True(t, readAt.Equal(*m.ReadAt))
			}

			unread, err := tx.UnreadCount(ctx, seller.ID)
			require.NoError(t, err)
			assert.Zero(t, unread)
			return nil
		}))
	})

	t.Run("listing delete requires dependents gone first", func(t *testing.T) {
		err := s.InTx(ctx, func(tx Tx) error {
			return tx.DeleteListing(ctx, car.ID)
		})
		assert.ErrorIs(t, err, ErrReferenced)
	})
}

func TestMemoryStore(t *testing.T) {
	runSuite(t, NewMemory())
}

func TestMemoryStoreHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemory().InTx(ctx, func(Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// BenchmarkMemoryInTx shows that a write costs time in proportion to the rows
// already held, since each unit of work copies every table.
func BenchmarkMemoryInTx(b *testing.B) {
	for _, rows := range []int{100, 10000} {
		b.Run(fmt.Sprintf("users=%d", rows), func(b *testing.B) {
			ctx := context.Background()
			m := NewMemory()
			require.NoError(b, m.InTx(ctx, func(tx Tx) error {
				for i := range rows {
					u := models.User{Username: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@example.com", i)}
					if err := tx.CreateUser(ctx, &u); err != nil {
						return err
					}
				}
				return nil
			}))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = m.InTx(ctx, func(tx Tx) error {
					return tx.SetVerified(ctx, 1, i%2 == 0)
				})
			}
		})
	}
}
