package store

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sudo-init-do/carhub/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory is a Store kept in process memory. InTx works on a copy of the data
// and swaps it in only when fn succeeds, so failed units leave no trace.
// Units are serialized by a single mutex.
//
// The copy is taken per table, so every InTx costs time and allocations in
// proportion to the total number of rows held. Memory suits tests and local
// runs with small data sets; production traffic belongs on Postgres.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

func (m *Memory) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{d: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{d: m.data})
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

type pairKey struct {
	userID    int64
	listingID int64
}

type threadKey struct {
	listingID, sellerID, buyerID int64
}

type sequences struct {
	user, listing, image, transaction, rating, thread, message int64
}

type memData struct {
	seq          sequences
	users        map[int64]models.User
	listings     map[int64]models.Listing
	images       map[int64]models.Image
	favorites    map[pairKey]time.Time
	views        map[pairKey]time.Time
	transactions map[int64]models.Transaction
	ratings      map[int64]models.Rating
	threads      map[int64]models.Thread
	messages     map[int64]models.Message
}

func newMemData() *memData {
	return &memData{
		users:        map[int64]models.User{},
		listings:     map[int64]models.Listing{},
		images:       map[int64]models.Image{},
		favorites:    map[pairKey]time.Time{},
		views:        map[pairKey]time.Time{},
		transactions: map[int64]models.Transaction{},
		ratings:      map[int64]models.Rating{},
		threads:      map[int64]models.Thread{},
		messages:     map[int64]models.Message{},
	}
}

// clone copies every table. Stored values are never mutated in place, so a
// shallow copy of each map is enough.
func (d *memData) clone() *memData {
	return &memData{
		seq:          d.seq,
		users:        maps.Clone(d.users),
		listings:     maps.Clone(d.listings),
		images:       maps.Clone(d.images),
		favorites:    maps.Clone(d.favorites),
		views:        maps.Clone(d.views),
		transactions: maps.Clone(d.transactions),
		ratings:      maps.Clone(d.ratings),
		threads:      maps.Clone(d.threads),
		messages:     maps.Clone(d.messages),
	}
}

type memTx struct {
	d *memData
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// =========================
// Users
// =========================

func (t *memTx) CreateUser(_ context.Context, u *models.User) error {
	for _, other := range t.d.users {
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			return ErrConflict
		}
	}
	t.d.seq.user++
	u.ID = t.d.seq.user
	u.CreatedAt = stamp(u.CreatedAt)
	t.d.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUser(_ context.Context, id int64) (models.User, error) {
	u, ok := t.d.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (t *memTx) GetUserByLogin(_ context.Context, login string) (models.User, error) {
	for _, u := range t.d.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (t *memTx) ListUsers(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(t.d.users))
	for _, u := range t.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) updateUser(id int64, fn func(*models.User)) error {
	u, ok := t.d.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	t.d.users[id] = u
	return nil
}

func (t *memTx) UpdateUserContacts(_ context.Context, id int64, phone, city, country string) error {
	return t.updateUser(id, func(u *models.User) {
		u.Phone, u.City, u.Country = phone, city, country
	})
}

func (t *memTx) SetVerificationRequested(_ context.Context, id int64) error {
	return t.updateUser(id, func(u *models.User) { u.VerificationRequested = true })
}

func (t *memTx) SetVerified(_ context.Context, id int64, verified bool) error {
	return t.updateUser(id, func(u *models.User) { u.Verified = verified })
}

func (t *memTx) SetAdminByEmail(_ context.Context, email string) (models.User, error) {
	for id, u := range t.d.users {
		if strings.EqualFold(u.Email, email) {
			u.IsAdmin = true
			t.d.users[id] = u
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// =========================
// Listings
// =========================

func (t *memTx) withCover(l models.Listing) models.Listing {
	var first int64
	for _, img := range t.d.images {
		if img.ListingID == l.ID && (first == 0 || img.ID < first) {
			first = img.ID
			l.CoverImage = img.FilePath
		}
	}
	return l
}

func sortListingsNewest(ls []models.Listing) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
		return ls[i].ID > ls[j].ID
	})
}

func (t *memTx) CreateListing(_ context.Context, l *models.Listing) error {
	if _, ok := t.d.users[l.OwnerID]; !ok {
		return ErrReferenced
	}
	t.d.seq.listing++
	l.ID = t.d.seq.listing
	l.CreatedAt = stamp(l.CreatedAt)
	l.CoverImage = ""
	t.d.listings[l.ID] = *l
	return nil
}

func (t *memTx) GetListing(_ context.Context, id int64) (models.Listing, error) {
	l, ok := t.d.listings[id]
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	return t.withCover(l), nil
}

// LockListing is GetListing; units of work are already serialized.
func (t *memTx) LockListing(ctx context.Context, id int64) (models.Listing, error) {
	return t.GetListing(ctx, id)
}

func (t *memTx) ListListings(_ context.Context, f models.ListingFilter) ([]models.Listing, error) {
	var out []models.Listing
	for _, l := range t.d.listings {
		switch {
		case f.OwnerID != 0 && l.OwnerID != f.OwnerID,
			f.Status != "" && l.Status != f.Status,
			f.Make != "" && l.Make != f.Make,
			f.Model != "" && l.Model != f.Model,
			f.ExcludeID != 0 && l.ID == f.ExcludeID:
			continue
		}
		out = append(out, t.withCover(l))
	}
	sortListingsNewest(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) UpdateListingSpec(_ context.Context, id int64, s models.Spec) (bool, error) {
	l, ok := t.d.listings[id]
	if !ok || l.Status != models.ListingActive {
		return false, nil
	}
	l.Spec = s
	t.d.listings[id] = l
	return true, nil
}

func (t *memTx) SwapListingStatus(_ context.Context, id int64, from, to models.ListingStatus) (bool, error) {
	l, ok := t.d.listings[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	t.d.listings[id] = l
	return true, nil
}

func (t *memTx) UpdateOwnerContacts(_ context.Context, ownerID int64, phone, city, country string) error {
	for id, l := range t.d.listings {
		if l.OwnerID == ownerID {
			l.Phone, l.City, l.Country = phone, city, country
			t.d.listings[id] = l
		}
	}
	return nil
}

// DeleteListing refuses while any row still points at the listing, the way
// the foreign keys in Postgres do.
func (t *memTx) DeleteListing(_ context.Context, id int64) error {
	if _, ok := t.d.listings[id]; !ok {
		return ErrNotFound
	}
	for _, img := range t.d.images {
		if img.ListingID == id {
			return ErrReferenced
		}
	}
	for _, tr := range t.d.transactions {
		if tr.ListingID == id {
			return ErrReferenced
		}
	}
	for _, th := range t.d.threads {
		if th.ListingID == id {
			return ErrReferenced
		}
	}
	for k := range t.d.favorites {
		if k.listingID == id {
			return ErrReferenced
		}
	}
	for k := range t.d.views {
		if k.listingID == id {
			return ErrReferenced
		}
	}
	delete(t.d.listings, id)
	return nil
}

func (t *memTx) AddImage(_ context.Context, img *models.Image) error {
	if _, ok := t.d.listings[img.ListingID]; !ok {
		return ErrReferenced
	}
	t.d.seq.image++
	img.ID = t.d.seq.image
	t.d.images[img.ID] = *img
	return nil
}

func (t *memTx) ListImages(_ context.Context, listingID int64) ([]models.Image, error) {
	var out []models.Image
	for _, img := range t.d.images {
		if img.ListingID == listingID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) DeleteImages(_ context.Context, listingID int64) error {
	for id, img := range t.d.images {
		if img.ListingID == listingID {
			delete(t.d.images, id)
		}
	}
	return nil
}

// =========================
// Favorites and recent views
// =========================

func (t *memTx) AddFavorite(_ context.Context, userID, listingID int64, at time.Time) error {
	k := pairKey{userID, listingID}
	if _, ok := t.d.favorites[k]; ok {
		return ErrConflict
	}
	if _, ok := t.d.listings[listingID]; !ok {
		return ErrReferenced
	}
	t.d.favorites[k] = stamp(at)
	return nil
}

func (t *memTx) RemoveFavorite(_ context.Context, userID, listingID int64) (bool, error) {
	k := pairKey{userID, listingID}
	if _, ok := t.d.favorites[k]; !ok {
		return false, nil
	}
	delete(t.d.favorites, k)
	return true, nil
}

// activeByTime returns the active listings of userID's entries in set,
// newest timestamp first.
func (t *memTx) activeByTime(set map[pairKey]time.Time, userID int64) []models.Listing {
	type entry struct {
		l  models.Listing
		at time.Time
	}
	var entries []entry
	for k, at := range set {
		if k.userID != userID {
			continue
		}
		l, ok := t.d.listings[k.listingID]
		if !ok || l.Status != models.ListingActive {
			continue
		}
		entries = append(entries, entry{t.withCover(l), at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.After(entries[j].at)
		}
		return entries[i].l.ID > entries[j].l.ID
	})
	out := make([]models.Listing, len(entries))
	for i, e := range entries {
		out[i] = e.l
	}
	return out
}

func (t *memTx) ListFavorites(_ context.Context, userID int64) ([]models.Listing, error) {
	return t.activeByTime(t.d.favorites, userID), nil
}

func (t *memTx) FavoriteIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for k := range t.d.favorites {
		if k.userID == userID {
			ids = append(ids, k.listingID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) DeleteFavorites(_ context.Context, listingID int64) error {
	for k := range t.d.favorites {
		if k.listingID == listingID {
			delete(t.d.favorites, k)
		}
	}
	return nil
}

func (t *memTx) UpsertRecentView(_ context.Context, userID, listingID int64, at time.Time) error {
	if _, ok := t.d.listings[listingID]; !ok {
		return ErrReferenced
	}
	t.d.views[pairKey{userID, listingID}] = stamp(at)
	return nil
}

func (t *memTx) ListRecentViews(_ context.Context, userID int64, limit int) ([]models.Listing, error) {
	out := t.activeByTime(t.d.views, userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) DeleteRecentViews(_ context.Context, listingID int64) error {
	for k := range t.d.views {
		if k.listingID == listingID {
			delete(t.d.views, k)
		}
	}
	return nil
}

// =========================
// Transactions
// =========================

func (t *memTx) CreateTransaction(_ context.Context, tr *models.Transaction) error {
	if _, ok := t.d.listings[tr.ListingID]; !ok {
		return ErrReferenced
	}
	for _, other := range t.d.transactions {
		if other.ListingID == tr.ListingID && other.Status != models.TransactionCanceled {
			return ErrConflict
		}
	}
	t.d.seq.transaction++
	tr.ID = t.d.seq.transaction
	tr.UpdatedAt = stamp(tr.UpdatedAt)
	t.d.transactions[tr.ID] = *tr
	return nil
}

func (t *memTx) GetTransaction(_ context.Context, id int64) (models.Transaction, error) {
	tr, ok := t.d.transactions[id]
	if !ok {
		return models.Transaction{}, ErrNotFound
	}
	return tr, nil
}

func (t *memTx) SwapTransactionStatus(_ context.Context, id int64, from []models.TransactionStatus, to models.TransactionStatus, at time.Time) (bool, error) {
	tr, ok := t.d.transactions[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if tr.Status == s {
			tr.Status = to
			tr.UpdatedAt = stamp(at)
			t.d.transactions[id] = tr
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountCompletedSales(_ context.Context, sellerID int64) (int, error) {
	n := 0
	for _, tr := range t.d.transactions {
		if tr.SellerID == sellerID && tr.Status == models.TransactionCompleted {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ratingFor(transactionID int64) *models.Rating {
	for _, r := range t.d.ratings {
		if r.TransactionID == transactionID {
			return &r
		}
	}
	return nil
}

func (t *memTx) ListUserTransactions(_ context.Context, userID int64) ([]models.TransactionSummary, error) {
	var out []models.TransactionSummary
	for _, tr := range t.d.transactions {
		if !tr.IsParty(userID) {
			continue
		}
		l, ok := t.d.listings[tr.ListingID]
		if !ok {
			continue
		}
		out = append(out, models.TransactionSummary{
			Transaction: tr,
			Make:        l.Make,
			Model:       l.Model,
			Year:        l.Year,
			Price:       l.Price,
			Rating:      t.ratingFor(tr.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) DeleteTransactions(_ context.Context, listingID int64) error {
	for id, tr := range t.d.transactions {
		if tr.ListingID != listingID {
			continue
		}
		if t.ratingFor(id) != nil {
			return ErrReferenced
		}
		delete(t.d.transactions, id)
	}
	return nil
}

// =========================
// Ratings
// =========================

func (t *memTx) UpsertRating(_ context.Context, r *models.Rating) error {
	if _, ok := t.d.transactions[r.TransactionID]; !ok {
		return ErrReferenced
	}
	if existing := t.ratingFor(r.TransactionID); existing != nil {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = stamp(r.CreatedAt)
		t.d.seq.rating++
		r.ID = t.d.seq.rating
	}
	t.d.ratings[r.ID] = *r
	return nil
}

func (t *memTx) GetRatingByTransaction(_ context.Context, transactionID int64) (models.Rating, error) {
	if r := t.ratingFor(transactionID); r != nil {
		return *r, nil
	}
	return models.Rating{}, ErrNotFound
}

func (t *memTx) ListRatings(_ context.Context) ([]models.Rating, error) {
	out := make([]models.Rating, 0, len(t.d.ratings))
	for _, r := range t.d.ratings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) SellerSummary(_ context.Context, sellerID int64) (models.RatingSummary, error) {
	sum := models.RatingSummary{SellerID: sellerID}
	var total float64
	for _, r := range t.d.ratings {
		if r.SellerID == sellerID {
			total += r.Mean()
			sum.Count++
		}
	}
	if sum.Count > 0 {
		sum.Average = total / float64(sum.Count)
	}
	return sum, nil
}

func (t *memTx) DeleteRating(_ context.Context, id int64) error {
	if _, ok := t.d.ratings[id]; !ok {
		return ErrNotFound
	}
	delete(t.d.ratings, id)
	return nil
}

func (t *memTx) DeleteTransactionRating(_ context.Context, transactionID int64) error {
	if r := t.ratingFor(transactionID); r != nil {
		delete(t.d.ratings, r.ID)
	}
	return nil
}

func (t *memTx) DeleteListingRatings(_ context.Context, listingID int64) error {
	for id, r := range t.d.ratings {
		if tr, ok := t.d.transactions[r.TransactionID]; ok && tr.ListingID == listingID {
			delete(t.d.ratings, id)
		}
	}
	return nil
}

// =========================
// Threads and messages
// =========================

func (t *memTx) FindThread(_ context.Context, listingID, sellerID, buyerID int64) (models.Thread, error) {
	want := threadKey{listingID, sellerID, buyerID}
	for _, th := range t.d.threads {
		if (threadKey{th.ListingID, th.SellerID, th.BuyerID}) == want {
			return th, nil
		}
	}
	return models.Thread{}, ErrNotFound
}

func (t *memTx) CreateThread(ctx context.Context, th *models.Thread) error {
	if _, err := t.FindThread(ctx, th.ListingID, th.SellerID, th.BuyerID); err == nil {
		return ErrConflict
	}
	if _, ok := t.d.listings[th.ListingID]; !ok {
		return ErrReferenced
	}
	t.d.seq.thread++
	th.ID = t.d.seq.thread
	th.CreatedAt = stamp(th.CreatedAt)
	t.d.threads[th.ID] = *th
	return nil
}

func (t *memTx) GetThread(_ context.Context, id int64) (models.Thread, error) {
	th, ok := t.d.threads[id]
	if !ok {
		return models.Thread{}, ErrNotFound
	}
	return th, nil
}

func (t *memTx) threadMessages(threadID int64) []models.Message {
	var out []models.Message
	for _, m := range t.d.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *memTx) ListThreadSummaries(_ context.Context, userID int64) ([]models.ThreadSummary, error) {
	var out []models.ThreadSummary
	for _, th := range t.d.threads {
		if !th.IsParty(userID) {
			continue
		}
		s := models.ThreadSummary{Thread: th}
		msgs := t.threadMessages(th.ID)
		if len(msgs) > 0 {
			s.LastMessage = msgs[len(msgs)-1].Body
		}
		for _, m := range msgs {
			if m.RecipientID == userID && m.ReadAt == nil {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *memTx) DeleteThreads(_ context.Context, listingID int64) error {
	for id, th := range t.d.threads {
		if th.ListingID != listingID {
			continue
		}
		if len(t.threadMessages(id)) > 0 {
			return ErrReferenced
		}
		delete(t.d.threads, id)
	}
	return nil
}

func (t *memTx) CreateMessage(_ context.Context, m *models.Message) error {
	if _, ok := t.d.threads[m.ThreadID]; !ok {
		return ErrReferenced
	}
	t.d.seq.message++
	m.ID = t.d.seq.message
	m.CreatedAt = stamp(m.CreatedAt)
	t.d.messages[m.ID] = *m
	return nil
}

func (t *memTx) ListMessages(_ context.Context, threadID int64) ([]models.Message, error) {
	return t.threadMessages(threadID), nil
}

func (t *memTx) MarkThreadRead(_ context.Context, threadID, recipientID int64, at time.Time) (int64, error) {
	var n int64
	for id, m := range t.d.messages {
		if m.ThreadID == threadID && m.RecipientID == recipientID && m.ReadAt == nil {
			readAt := at
			m.ReadAt = &readAt
			t.d.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (t *memTx) UnreadCount(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, m := range t.d.messages {
		if m.RecipientID == userID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteListingMessages(_ context.Context, listingID int64) error {
	for id, m := range t.d.messages {
		if th, ok := t.d.threads[m.ThreadID]; ok && th.ListingID == listingID {
			delete(t.d.messages, id)
		}
	}
	return nil
}
