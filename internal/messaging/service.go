// Package messaging holds conversations between a listing's seller and
// prospective buyers.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
)

// MaxBodyLength caps a single message, in characters.
const MaxBodyLength = 5000

var errThreadNotFound = apperr.NotFound("Thread not found.")

// Conversation is an opened thread with its messages, oldest first.
type Conversation struct {
	Thread   models.Thread    `json:"thread"`
	Messages []models.Message `json:"messages"`
}

type Service struct {
	store  store.Store
	notify alerts.Notifier
	push   Pusher
	now    func() time.Time
}

func NewService(s store.Store, notify alerts.Notifier, push Pusher) *Service {
	if notify == nil {
		notify = alerts.Nop{}
	}
	if push == nil {
		push = HubPusher{}
	}
	return &Service{store: s, notify: notify, push: push, now: func() time.Time { return time.Now().UTC() }}
}

// StartConversation opens (or reopens) the caller's thread with the seller of
// a listing.
func (s *Service) StartConversation(ctx context.Context, listingID, callerID int64) (models.Thread, error) {
	var ownerID int64
	err := s.store.View(ctx, func(tx store.Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		ownerID = l.OwnerID
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Thread{}, apperr.NotFound("Listing not found.")
	}
	if err != nil {
		return models.Thread{}, fmt.Errorf("get listing: %w", err)
	}
	return s.GetOrCreateThread(ctx, listingID, ownerID, callerID)
}

// GetOrCreateThread returns the thread for the exact (listing, seller, buyer)
// triple, creating it when missing.
func (s *Service) GetOrCreateThread(ctx context.Context, listingID, sellerID, buyerID int64) (th models.Thread, err error) {
	defer func() { metrics.MessagesTotal.WithLabelValues("thread", metrics.Result(err)).Inc() }()

	if sellerID == buyerID {
		return models.Thread{}, apperr.Validation("You cannot message yourself.")
	}

	attempt := func(tx store.Tx) error {
		if _, err := tx.GetListing(ctx, listingID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Listing not found.")
			}
			return fmt.Errorf("get listing: %w", err)
		}
		var err error
		th, err = tx.FindThread(ctx, listingID, sellerID, buyerID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find thread: %w", err)
		}
		th = models.Thread{ListingID: listingID, SellerID: sellerID, BuyerID: buyerID, CreatedAt: s.now()}
		return tx.CreateThread(ctx, &th)
	}

	err = s.store.InTx(ctx, attempt)
	if errors.Is(err, store.ErrConflict) {
		// a concurrent call created it first; the second pass finds it
		err = s.store.InTx(ctx, attempt)
	}
	if errors.Is(err, store.ErrReferenced) {
		return models.Thread{}, apperr.NotFound("User not found.")
	}
	if err != nil {
		if apperr.KindOf(err) == 0 {
			err = fmt.Errorf("get or create thread: %w", err)
		}
		return models.Thread{}, err
	}
	return th, nil
}

// threadFor loads a thread and checks that userID takes part in it.
func (s *Service) threadFor(ctx context.Context, threadID, userID int64) (models.Thread, error) {
	var th models.Thread
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		th, err = loadThread(ctx, tx, threadID, userID)
		return err
	})
	return th, err
}

func loadThread(ctx context.Context, tx store.Tx, threadID, userID int64) (models.Thread, error) {
	th, err := tx.GetThread(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Thread{}, errThreadNotFound
	}
	if err != nil {
		return models.Thread{}, fmt.Errorf("get thread: %w", err)
	}
	if !th.IsParty(userID) {
		return models.Thread{}, apperr.Forbidden("You are not part of this conversation.")
	}
	return th, nil
}

// Send appends an unread message from senderID to the other party.
func (s *Service) Send(ctx context.Context, threadID, senderID int64, body string) (m models.Message, err error) {
	defer func() { metrics.MessagesTotal.WithLabelValues("send", metrics.Result(err)).Inc() }()

	var from, to models.User
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		th, err := loadThread(ctx, tx, threadID, senderID)
		if err != nil {
			return err
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return apperr.Validation("Message cannot be empty.")
		}
		if utf8.RuneCountInString(body) > MaxBodyLength {
			return apperr.Validation(fmt.Sprintf("Message is too long (max %d characters).", MaxBodyLength))
		}

		m = models.Message{
			ThreadID:    th.ID,
			SenderID:    senderID,
			RecipientID: th.Counterpart(senderID),
			Body:        body,
			CreatedAt:   s.now(),
		}
		if err := tx.CreateMessage(ctx, &m); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if from, err = tx.GetUser(ctx, senderID); err != nil {
			return fmt.Errorf("get sender: %w", err)
		}
		if to, err = tx.GetUser(ctx, m.RecipientID); err != nil {
			return fmt.Errorf("get recipient: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}

	s.push.NewMessage(m)
	if err := s.notify.MessageNew(ctx, alerts.MessageEvent{Message: m, From: from, To: to}); err != nil {
		log.Printf("[notify][ERROR] %s enqueue failed: %v", alerts.TaskMessageNew, err)
		metrics.NotifyErrors.WithLabelValues(alerts.TaskMessageNew).Inc()
	}
	return m, nil
}

// Open marks every unread message addressed to viewerID in the thread as read
// with one timestamp and returns the thread with all its messages.
func (s *Service) Open(ctx context.Context, threadID, viewerID int64) (Conversation, error) {
	var (
		conv Conversation
		read int64
	)
	at := s.now()
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		th, err := loadThread(ctx, tx, threadID, viewerID)
		if err != nil {
			return err
		}
		if read, err = tx.MarkThreadRead(ctx, threadID, viewerID, at); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		msgs, err := tx.ListMessages(ctx, threadID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		conv = Conversation{Thread: th, Messages: msgs}
		return nil
	})
	if err != nil {
		return Conversation{}, err
	}
	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}
	if read > 0 {
		s.push.MessagesRead(threadID, viewerID, read, at)
	}
	return conv, nil
}

// UnreadCount counts messages addressed to userID that were never opened.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.UnreadCount(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// Inbox lists the user's threads, newest thread first. New messages do not
// reorder it.
func (s *Service) Inbox(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	var out []models.ThreadSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListThreadSummaries(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	return out, nil
}
