package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sudo-init-do/carhub/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

var _ Store = (*Postgres)(nil)

// Postgres is the production Store backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	return fn(&pgTx{q: p.pool})
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// mapErr turns driver errors into the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReferenced, pgErr.ConstraintName)
		}
	}
	return err
}

func mustAffect(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgTx struct {
	q querier
}

// =========================
// Users
// =========================

const userCols = `id, first_name, last_name, username, email, password_hash, phone, city, country,
    verified, verification_requested, is_admin, created_at`

func scanUser(s scanner) (models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash,
		&u.Phone, &u.City, &u.Country, &u.Verified, &u.VerificationRequested, &u.IsAdmin, &u.CreatedAt)
	return u, mapErr(err)
}

func (t *pgTx) CreateUser(ctx context.Context, u *models.User) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, username, email, password_hash, phone, city, country, is_admin)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         RETURNING id, created_at`,
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, u.Phone, u.City, u.Country, u.IsAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	return mapErr(err)
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (models.User, error) {
	return scanUser(t.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (t *pgTx) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return scanUser(t.q.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE username = $1 OR LOWER(email) = LOWER($1) LIMIT 1`, login))
}

func (t *pgTx) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := t.q.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.User, error) {
		return scanUser(r)
	})
}

func (t *pgTx) UpdateUserContacts(ctx context.Context, id int64, phone, city, country string) error {
	return mustAffect(t.q.Exec(ctx,
		`UPDATE users SET phone = $2, city = $3, country = $4 WHERE id = $1`,
		id, phone, city, country))
}

func (t *pgTx) SetVerificationRequested(ctx context.Context, id int64) error {
	return mustAffect(t.q.Exec(ctx, `UPDATE users SET verification_requested = TRUE WHERE id = $1`, id))
}

func (t *pgTx) SetVerified(ctx context.Context, id int64, verified bool) error {
	return mustAffect(t.q.Exec(ctx, `UPDATE users SET verified = $2 WHERE id = $1`, id, verified))
}

func (t *pgTx) SetAdminByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(t.q.QueryRow(ctx,
		`UPDATE users SET is_admin = TRUE WHERE LOWER(email) = LOWER($1) RETURNING `+userCols, email))
}

// =========================
// Listings
// =========================

const listingCols = `c.id, c.user_id, c.make, c.model, c.year, c.mileage, c.price, c.color, c.fuel,
    c.transmission, c.body_style, c.description, c.city, c.country, c.phone, c.status, c.created_at,
    COALESCE((SELECT i.file_path FROM car_images i WHERE i.car_id = c.id ORDER BY i.id LIMIT 1), '')`

func scanListing(s scanner) (models.Listing, error) {
	var l models.Listing
	var status string
	err := s.Scan(&l.ID, &l.OwnerID, &l.Make, &l.Model, &l.Year, &l.Mileage, &l.Price, &l.Color, &l.Fuel,
		&l.Transmission, &l.BodyStyle, &l.Description, &l.City, &l.Country, &l.Phone, &status, &l.CreatedAt,
		&l.CoverImage)
	l.Status = models.ListingStatus(status)
	return l, mapErr(err)
}

func collectListings(rows pgx.Rows, err error) ([]models.Listing, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Listing, error) {
		return scanListing(r)
	})
}

func (t *pgTx) CreateListing(ctx context.Context, l *models.Listing) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO cars (user_id, price, year, mileage, make, model, color, fuel, transmission, body_style,
                           description, city, country, phone, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
         RETURNING id, created_at`,
		l.OwnerID, l.Price, l.Year, l.Mileage, l.Make, l.Model, l.Color, l.Fuel, l.Transmission, l.BodyStyle,
		l.Description, l.City, l.Country, l.Phone, string(l.Status),
	).Scan(&l.ID, &l.CreatedAt)
	return mapErr(err)
}

func (t *pgTx) GetListing(ctx context.Context, id int64) (models.Listing, error) {
	return scanListing(t.q.QueryRow(ctx, `SELECT `+listingCols+` FROM cars c WHERE c.id = $1`, id))
}

func (t *pgTx) LockListing(ctx context.Context, id int64) (models.Listing, error) {
	return scanListing(t.q.QueryRow(ctx, `SELECT `+listingCols+` FROM cars c WHERE c.id = $1 FOR UPDATE OF c`, id))
}

func (t *pgTx) ListListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != 0 {
		add("c.user_id = $%d", f.OwnerID)
	}
	if f.Status != "" {
		add("c.status = $%d", string(f.Status))
	}
	if f.Make != "" {
		add("c.make = $%d", f.Make)
	}
	if f.Model != "" {
		add("c.model = $%d", f.Model)
	}
	if f.ExcludeID != 0 {
		add("c.id <> $%d", f.ExcludeID)
	}

	q := `SELECT ` + listingCols + ` FROM cars c`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY c.created_at DESC, c.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return collectListings(t.q.Query(ctx, q, args...))
}

func (t *pgTx) UpdateListingSpec(ctx context.Context, id int64, s models.Spec) (bool, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE cars SET price = $2, year = $3, mileage = $4, make = $5, model = $6, color = $7, fuel = $8,
                transmission = $9, body_style = $10, description = $11, city = $12, country = $13, phone = $14
         WHERE id = $1 AND status = 'active'`,
		id, s.Price, s.Year, s.Mileage, s.Make, s.Model, s.Color, s.Fuel, s.Transmission, s.BodyStyle,
		s.Description, s.City, s.Country, s.Phone)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) SwapListingStatus(ctx context.Context, id int64, from, to models.ListingStatus) (bool, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE cars SET status = $3 WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) UpdateOwnerContacts(ctx context.Context, ownerID int64, phone, city, country string) error {
	_, err := t.q.Exec(ctx,
		`UPDATE cars SET phone = $2, city = $3, country = $4 WHERE user_id = $1`,
		ownerID, phone, city, country)
	return mapErr(err)
}

func (t *pgTx) DeleteListing(ctx context.Context, id int64) error {
	return mustAffect(t.q.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id))
}

func (t *pgTx) AddImage(ctx context.Context, img *models.Image) error {
	return mapErr(t.q.QueryRow(ctx,
		`INSERT INTO car_images (car_id, file_path) VALUES ($1, $2) RETURNING id`,
		img.ListingID, img.FilePath,
	).Scan(&img.ID))
}

func (t *pgTx) ListImages(ctx context.Context, listingID int64) ([]models.Image, error) {
	rows, err := t.q.Query(ctx,
		`SELECT id, car_id, file_path FROM car_images WHERE car_id = $1 ORDER BY id`, listingID)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Image, error) {
		var img models.Image
		err := r.Scan(&img.ID, &img.ListingID, &img.FilePath)
		return img, err
	})
}

func (t *pgTx) DeleteImages(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM car_images WHERE car_id = $1`, listingID)
	return mapErr(err)
}

// =========================
// Favorites and recent views
// =========================

func (t *pgTx) AddFavorite(ctx context.Context, userID, listingID int64, at time.Time) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO favorites (user_id, car_id, created_at) VALUES ($1, $2, $3)`, userID, listingID, at)
	return mapErr(err)
}

func (t *pgTx) RemoveFavorite(ctx context.Context, userID, listingID int64) (bool, error) {
	tag, err := t.q.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND car_id = $2`, userID, listingID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ListFavorites(ctx context.Context, userID int64) ([]models.Listing, error) {
	return collectListings(t.q.Query(ctx,
		`SELECT `+listingCols+`
         FROM favorites f JOIN cars c ON c.id = f.car_id
         WHERE f.user_id = $1 AND c.status = 'active'
         ORDER BY f.created_at DESC, c.id DESC`, userID))
}

func (t *pgTx) FavoriteIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT car_id FROM favorites WHERE user_id = $1 ORDER BY car_id`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *pgTx) DeleteFavorites(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM favorites WHERE car_id = $1`, listingID)
	return mapErr(err)
}

func (t *pgTx) UpsertRecentView(ctx context.Context, userID, listingID int64, at time.Time) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO recent_views (user_id, car_id, viewed_at) VALUES ($1, $2, $3)
         ON CONFLICT (user_id, car_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at`,
		userID, listingID, at)
	return mapErr(err)
}

func (t *pgTx) ListRecentViews(ctx context.Context, userID int64, limit int) ([]models.Listing, error) {
	return collectListings(t.q.Query(ctx,
		`SELECT `+listingCols+`
         FROM recent_views v JOIN cars c ON c.id = v.car_id
         WHERE v.user_id = $1 AND c.status = 'active'
         ORDER BY v.viewed_at DESC, c.id DESC
         LIMIT $2`, userID, limit))
}

func (t *pgTx) DeleteRecentViews(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM recent_views WHERE car_id = $1`, listingID)
	return mapErr(err)
}

// =========================
// Transactions
// =========================

const transactionCols = `id, car_id, seller_id, buyer_id, status, completed_at`

func scanTransaction(s scanner) (models.Transaction, error) {
	var tr models.Transaction
	var status string
	err := s.Scan(&tr.ID, &tr.ListingID, &tr.SellerID, &tr.BuyerID, &status, &tr.UpdatedAt)
	tr.Status = models.TransactionStatus(status)
	return tr, mapErr(err)
}

func (t *pgTx) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	return mapErr(t.q.QueryRow(ctx,
		`INSERT INTO transactions (car_id, seller_id, buyer_id, status, completed_at)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id`,
		tr.ListingID, tr.SellerID, tr.BuyerID, string(tr.Status), tr.UpdatedAt,
	).Scan(&tr.ID))
}

func (t *pgTx) GetTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	return scanTransaction(t.q.QueryRow(ctx, `SELECT `+transactionCols+` FROM transactions WHERE id = $1`, id))
}

func (t *pgTx) SwapTransactionStatus(ctx context.Context, id int64, from []models.TransactionStatus, to models.TransactionStatus, at time.Time) (bool, error) {
	fromNames := make([]string, len(from))
	for i, s := range from {
		fromNames[i] = string(s)
	}
	tag, err := t.q.Exec(ctx,
		`UPDATE transactions SET status = $3, completed_at = $4 WHERE id = $1 AND status = ANY($2)`,
		id, fromNames, string(to), at)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) CountCompletedSales(ctx context.Context, sellerID int64) (int, error) {
	var n int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE seller_id = $1 AND status = 'completed'`, sellerID).Scan(&n)
	return n, mapErr(err)
}

func (t *pgTx) ListUserTransactions(ctx context.Context, userID int64) ([]models.TransactionSummary, error) {
	rows, err := t.q.Query(ctx,
		`SELECT t.id, t.car_id, t.seller_id, t.buyer_id, t.status, t.completed_at,
                c.make, c.model, c.year, c.price,
                r.id, r.reliability, r.accuracy, r.communication, r.product, r.comment, r.created_at
         FROM transactions t
         JOIN cars c ON c.id = t.car_id
         LEFT JOIN transaction_ratings r ON r.transaction_id = t.id
         WHERE t.seller_id = $1 OR t.buyer_id = $1
         ORDER BY t.completed_at DESC, t.id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.TransactionSummary, error) {
		var s models.TransactionSummary
		var status string
		var (
			ratingID             *int64
			rel, acc, comm, prod *int
			comment              *string
			ratedAt              *time.Time
		)
		err := r.Scan(&s.ID, &s.ListingID, &s.SellerID, &s.BuyerID, &status, &s.UpdatedAt,
			&s.Make, &s.Model, &s.Year, &s.Price,
			&ratingID, &rel, &acc, &comm, &prod, &comment, &ratedAt)
		if err != nil {
			return s, err
		}
		s.Status = models.TransactionStatus(status)
		if ratingID != nil {
			s.Rating = &models.Rating{
				ID:            *ratingID,
				TransactionID: s.ID,
				SellerID:      s.SellerID,
				BuyerID:       s.BuyerID,
				Scores:        models.Scores{Reliability: *rel, Accuracy: *acc, Communication: *comm, Product: *prod},
				Comment:       *comment,
				CreatedAt:     *ratedAt,
			}
		}
		return s, nil
	})
}

func (t *pgTx) DeleteTransactions(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM transactions WHERE car_id = $1`, listingID)
	return mapErr(err)
}

// =========================
// Ratings
// =========================

const ratingCols = `id, transaction_id, seller_id, buyer_id, reliability, accuracy, communication, product,
    comment, created_at`

func scanRating(s scanner) (models.Rating, error) {
	var r models.Rating
	err := s.Scan(&r.ID, &r.TransactionID, &r.SellerID, &r.BuyerID,
		&r.Reliability, &r.Accuracy, &r.Communication, &r.Product, &r.Comment, &r.CreatedAt)
	return r, mapErr(err)
}

func (t *pgTx) UpsertRating(ctx context.Context, r *models.Rating) error {
	return mapErr(t.q.QueryRow(ctx,
		`INSERT INTO transaction_ratings (transaction_id, seller_id, buyer_id, reliability, accuracy,
                                          communication, product, comment, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (transaction_id) DO UPDATE SET
             reliability = EXCLUDED.reliability,
             accuracy = EXCLUDED.accuracy,
             communication = EXCLUDED.communication,
             product = EXCLUDED.product,
             comment = EXCLUDED.comment
         RETURNING id, created_at`,
		r.TransactionID, r.SellerID, r.BuyerID, r.Reliability, r.Accuracy, r.Communication, r.Product,
		r.Comment, r.CreatedAt,
	).Scan(&r.ID, &r.CreatedAt))
}

func (t *pgTx) GetRatingByTransaction(ctx context.Context, transactionID int64) (models.Rating, error) {
	return scanRating(t.q.QueryRow(ctx,
		`SELECT `+ratingCols+` FROM transaction_ratings WHERE transaction_id = $1`, transactionID))
}

func (t *pgTx) ListRatings(ctx context.Context) ([]models.Rating, error) {
	rows, err := t.q.Query(ctx, `SELECT `+ratingCols+` FROM transaction_ratings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Rating, error) {
		return scanRating(r)
	})
}

func (t *pgTx) SellerSummary(ctx context.Context, sellerID int64) (models.RatingSummary, error) {
	sum := models.RatingSummary{SellerID: sellerID}
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*),
                COALESCE(AVG((reliability + accuracy + communication + product) / 4.0), 0)::float8
         FROM transaction_ratings WHERE seller_id = $1`, sellerID,
	).Scan(&sum.Count, &sum.Average)
	return sum, mapErr(err)
}

func (t *pgTx) DeleteRating(ctx context.Context, id int64) error {
	return mustAffect(t.q.Exec(ctx, `DELETE FROM transaction_ratings WHERE id = $1`, id))
}

func (t *pgTx) DeleteTransactionRating(ctx context.Context, transactionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM transaction_ratings WHERE transaction_id = $1`, transactionID)
	return mapErr(err)
}

func (t *pgTx) DeleteListingRatings(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx,
		`DELETE FROM transaction_ratings
         WHERE transaction_id IN (SELECT id FROM transactions WHERE car_id = $1)`, listingID)
	return mapErr(err)
}

// =========================
// Threads and messages
// =========================

const threadCols = `id, car_id, seller_id, buyer_id, created_at`

func scanThread(s scanner) (models.Thread, error) {
	var th models.Thread
	err := s.Scan(&th.ID, &th.ListingID, &th.SellerID, &th.BuyerID, &th.CreatedAt)
	return th, mapErr(err)
}

func (t *pgTx) FindThread(ctx context.Context, listingID, sellerID, buyerID int64) (models.Thread, error) {
	return scanThread(t.q.QueryRow(ctx,
		`SELECT `+threadCols+` FROM message_threads WHERE car_id = $1 AND seller_id = $2 AND buyer_id = $3`,
		listingID, sellerID, buyerID))
}

func (t *pgTx) CreateThread(ctx context.Context, th *models.Thread) error {
	return mapErr(t.q.QueryRow(ctx,
		`INSERT INTO message_threads (car_id, seller_id, buyer_id, created_at)
         VALUES ($1, $2, $3, $4) RETURNING id`,
		th.ListingID, th.SellerID, th.BuyerID, th.CreatedAt,
	).Scan(&th.ID))
}

func (t *pgTx) GetThread(ctx context.Context, id int64) (models.Thread, error) {
	return scanThread(t.q.QueryRow(ctx, `SELECT `+threadCols+` FROM message_threads WHERE id = $1`, id))
}

func (t *pgTx) ListThreadSummaries(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	rows, err := t.q.Query(ctx,
		`SELECT t.id, t.car_id, t.seller_id, t.buyer_id, t.created_at,
                COALESCE((SELECT m.body FROM messages m WHERE m.thread_id = t.id
                          ORDER BY m.created_at DESC, m.id DESC LIMIT 1), ''),
                (SELECT COUNT(*) FROM messages m
                 WHERE m.thread_id = t.id AND m.recipient_id = $1 AND m.read_at IS NULL)
         FROM message_threads t
         WHERE t.seller_id = $1 OR t.buyer_id = $1
         ORDER BY t.created_at DESC, t.id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.ThreadSummary, error) {
		var s models.ThreadSummary
		err := r.Scan(&s.ID, &s.ListingID, &s.SellerID, &s.BuyerID, &s.CreatedAt, &s.LastMessage, &s.UnreadCount)
		return s, err
	})
}

func (t *pgTx) DeleteThreads(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM message_threads WHERE car_id = $1`, listingID)
	return mapErr(err)
}

func (t *pgTx) CreateMessage(ctx context.Context, m *models.Message) error {
	return mapErr(t.q.QueryRow(ctx,
		`INSERT INTO messages (thread_id, sender_id, recipient_id, body, created_at)
         VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.ThreadID, m.SenderID, m.RecipientID, m.Body, m.CreatedAt,
	).Scan(&m.ID))
}

func (t *pgTx) ListMessages(ctx context.Context, threadID int64) ([]models.Message, error) {
	rows, err := t.q.Query(ctx,
		`SELECT id, thread_id, sender_id, recipient_id, body, created_at, read_at
         FROM messages WHERE thread_id = $1
         ORDER BY created_at ASC, id ASC`, threadID)
	if err != nil {
		return nil, mapErr(err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Message, error) {
		var m models.Message
		err := r.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt, &m.ReadAt)
		return m, err
	})
}

func (t *pgTx) MarkThreadRead(ctx context.Context, threadID, recipientID int64, at time.Time) (int64, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE messages SET read_at = $3
         WHERE thread_id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		threadID, recipientID, at)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	return n, mapErr(err)
}

func (t *pgTx) DeleteListingMessages(ctx context.Context, listingID int64) error {
	_, err := t.q.Exec(ctx,
		`DELETE FROM messages WHERE thread_id IN (SELECT id FROM message_threads WHERE car_id = $1)`, listingID)
	return mapErr(err)
}
