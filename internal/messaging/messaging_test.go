package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

type fakePusher struct {
	mu    sync.Mutex
	sent  []models.Message
	reads []int64
}

func (p *fakePusher) NewMessage(m models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, m)
}

func (p *fakePusher) MessagesRead(_, _, count int64, _ time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = append(p.reads, count)
}

type fakeNotifier struct {
	alerts.Nop
	events []alerts.MessageEvent
}

func (f *fakeNotifier) MessageNew(_ context.Context, ev alerts.MessageEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fixture struct {
	svc     *Service
	store   store.Store
	push    *fakePusher
	notify  *fakeNotifier
	seller  models.User
	buyer   models.User
	listing models.Listing
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:  store.NewMemory(),
		push:   &fakePusher{},
		notify: &fakeNotifier{},
		clock:  time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.notify, f.push)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.seller = models.User{Username: "sam", Email: "sam@example.com"}
	f.buyer = models.User{Username: "bea", Email: "bea@example.com"}
	require.NoError(t, f.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateUser(ctx, &f.seller); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &f.buyer); err != nil {
			return err
		}
		f.listing = models.Listing{OwnerID: f.seller.ID, Status: models.ListingActive,
			Spec: models.Spec{Make: "Seat", Model: "Leon", Year: 2017}}
		return tx.CreateListing(ctx, &f.listing)
	}))
	return f
}

func TestGetOrCreateThreadIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.GetOrCreateThread(ctx, f.listing.ID, f.seller.ID, f.buyer.ID)
	require.NoError(t, err)
	b, err := f.svc.GetOrCreateThread(ctx, f.listing.ID, f.seller.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	inbox, err := f.svc.Inbox(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)

	_, err = f.svc.GetOrCreateThread(ctx, 404, f.seller.ID, f.buyer.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInboxOrdersByThreadCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := models.Listing{OwnerID: f.seller.ID, Status: models.ListingActive,
		Spec: models.Spec{Make: "Skoda", Model: "Octavia", Year: 2019}}
	require.NoError(t, f.store.InTx(ctx, func(tx store.Tx) error {
		return tx.CreateListing(ctx, &second)
	}))

	older, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)
	newer, err := f.svc.StartConversation(ctx, second.ID, f.buyer.ID)
	require.NoError(t, err)

	// a fresh message in the older thread does not move it up
	_, err = f.svc.Send(ctx, older.ID, f.buyer.ID, "is it still for sale?")
	require.NoError(t, err)

	inbox, err := f.svc.Inbox(ctx, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, newer.ID, inbox[0].ID)
	assert.Equal(t, older.ID, inbox[1].ID)
	assert.Equal(t, "is it still for sale?", inbox[1].LastMessage)
}

func TestStartConversationRejectsSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartConversation(ctx, f.listing.ID, f.seller.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	th, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, th.SellerID)
	assert.Equal(t, f.buyer.ID, th.BuyerID)
}

func TestSendChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, 404, f.buyer.ID, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Send(ctx, th.ID, 999, "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Send(ctx, th.ID, f.buyer.ID, "   \n\t")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, err := f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected sends write nothing")
	assert.Empty(t, f.push.sent)
}

func TestConversationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	th, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)
	first, err := f.svc.Send(ctx, th.ID, f.buyer.ID, "Is this still available?")
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, first.RecipientID)
	assert.Nil(t, first.ReadAt)

	n, err := f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.notify.events, 1)
	assert.Equal(t, "sam@example.com", f.notify.events[0].To.Email)

	conv, err := f.svc.Open(ctx, th.ID, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	require.NotNil(t, conv.Messages[0].ReadAt)
	assert.Equal(t, []int64{1}, f.push.reads)

	n, err = f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.Send(ctx, th.ID, f.seller.ID, "Yes, come by on Saturday.")
	require.NoError(t, err)

	conv, err = f.svc.Open(ctx, th.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Is this still available?", conv.Messages[0].Body)
	assert.Equal(t, "Yes, come by on Saturday.", conv.Messages[1].Body)
	assert.Equal(t, f.buyer.ID, conv.Messages[1].RecipientID)
}

func TestOpenMarksAllWithOneTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)
	for _, body := range []string{"one", "two", "three"} {
		_, err := f.svc.Send(ctx, th.ID, f.buyer.ID, body)
		require.NoError(t, err)
	}

	// the buyer opening the thread reads nothing of their own
	_, err = f.svc.Open(ctx, th.ID, f.buyer.ID)
	require.NoError(t, err)
	n, err := f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = f.svc.Open(ctx, th.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	conv, err := f.svc.Open(ctx, th.ID, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	stamp := conv.Messages[0].ReadAt
	require.NotNil(t, stamp)
	for _, m := range conv.Messages {
		require.NotNil(t, m.ReadAt)
		assert.True(t, stamp.Equal(*m.ReadAt))
	}
	assert.Equal(t, []string{"one", "two", "three"},
		[]string{conv.Messages[0].Body, conv.Messages[1].Body, conv.Messages[2].Body})
}

func TestThreadWebsocketPushesNewMessages(t *testing.T) {
	f := newFixture(t)
	f.svc.push = HubPusher{}
	ctx := context.Background()
	th, err := f.svc.StartConversation(ctx, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)

	e := echo.New()
	h := NewHandler(f.svc)
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := strconv.ParseInt(c.Request().Header.Get("X-User"), 10, 64)
			c.Set("user_id", id)
			return next(c)
		}
	})
	h.Register(g)
	srv := httptest.NewServer(e)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/threads/" + strconv.FormatInt(th.ID, 10) + "/ws"

	hdr := http.Header{}
	hdr.Set("X-User", "999")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	hdr.Set("X-User", strconv.FormatInt(f.seller.ID, 10))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var evt struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	// the join event confirms the connection is registered
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "presence_join", evt.Type)

	_, err = f.svc.Send(ctx, th.ID, f.buyer.ID, "still there?")
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "message_new", evt.Type)
	var m models.Message
	require.NoError(t, json.Unmarshal(evt.Data, &m))
	assert.Equal(t, "still there?", m.Body)
}
