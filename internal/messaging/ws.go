package messaging

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sudo-init-do/carhub/internal/metrics"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/utils"
)

const writeWait = 5 * time.Second

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type hub struct {
	threadID int64
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
}

var (
	hubsMu sync.Mutex
	hubs   = make(map[int64]*hub)
)

// join adds c to the thread's hub, creating the hub on first use.
func join(threadID int64, c *websocket.Conn) *hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[threadID]
	if !ok {
		h = &hub{threadID: threadID, clients: make(map[*websocket.Conn]bool)}
		hubs[threadID] = h
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	metrics.WSClients.Inc()
	return h
}

func findHub(threadID int64) (*hub, bool) {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[threadID]
	return h, ok
}

// broadcast writes under the hub lock; a connection allows one writer at a
// time.
func (h *hub) broadcast(evt wsEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[ws] marshal %s: %v", evt.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("[ws] thread=%d write failed: %v", h.threadID, err)
		}
	}
}

// leave removes c and drops the hub once nobody listens.
func (h *hub) leave(c *websocket.Conn) {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.WSClients.Dec()
	}
	if len(h.clients) == 0 && hubs[h.threadID] == h {
		delete(hubs, h.threadID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ThreadWS - websocket for realtime updates on a thread
func (h *Handler) ThreadWS(c echo.Context) error {
	userID, ok := utils.UserID(c)
	if !ok {
		return utils.Unauthorized(c)
	}
	threadID, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}

	// Verify participation
	if _, err := h.svc.threadFor(c.Request().Context(), threadID, userID); err != nil {
		return utils.Fail(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	hb := join(threadID, ws)
	hb.broadcast(wsEvent{Type: "presence_join", Data: echo.Map{"user_id": userID}})

	// Read loop (discard client messages; protocol is server push)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			hb.leave(ws)
			_ = ws.Close()
			hb.broadcast(wsEvent{Type: "presence_leave", Data: echo.Map{"user_id": userID}})
			break
		}
	}
	return nil
}

// Pusher delivers thread events to connected clients.
type Pusher interface {
	NewMessage(m models.Message)
	MessagesRead(threadID, readerID, count int64, at time.Time)
}

// HubPusher publishes to the in-process websocket hubs.
type HubPusher struct{}

// NewMessage - publish a new message event to the thread hub
func (HubPusher) NewMessage(m models.Message) {
	BroadcastNewMessage(m.ThreadID, m)
}

// MessagesRead - publish a read receipt to the thread hub
func (HubPusher) MessagesRead(threadID, readerID, count int64, at time.Time) {
	BroadcastMessageRead(threadID, echo.Map{
		"thread_id": threadID,
		"reader_id": readerID,
		"count":     count,
		"read_at":   at.UTC().Format(time.RFC3339),
	})
}

// BroadcastNewMessage - publish a new message event to thread hub
func BroadcastNewMessage(threadID int64, message interface{}) {
	if h, ok := findHub(threadID); ok {
		h.broadcast(wsEvent{Type: "message_new", Data: message})
	}
}

// BroadcastMessageRead - publish a message read event
func BroadcastMessageRead(threadID int64, payload interface{}) {
	if h, ok := findHub(threadID); ok {
		h.broadcast(wsEvent{Type: "message_read", Data: payload})
	}
}
