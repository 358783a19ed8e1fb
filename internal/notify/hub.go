package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pulsegen/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 16

type client struct {
	userID int64
	role   domain.UserRole
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub tracks open sockets per user. A user may hold several connections.
type Hub struct {
	mutex   sync.RWMutex
	clients map[int64]map[*client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[int64]map[*client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(userID int64, role domain.UserRole, conn *websocket.Conn) *client {
	c := &client{
		userID: userID,
		role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// Publish sends ev to the video owner and to every connected admin. Slow
// clients whose buffer is full miss the event.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.wire())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for userID, set := range h.clients {
		for c := range set {
			if userID != ev.OwnerID && c.role != domain.RoleAdmin {
				continue
			}
			select {
			case c.send <- payload:
			default:
				h.log.Warn("dropping notification for slow client",
					zap.Int64("user_id", userID),
					zap.String("video_id", ev.VideoID),
				)
			}
		}
	}
	return nil
}

// OnlineCount reports the number of open connections.
func (h *Hub) OnlineCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, set := range h.clients {
		for c := range set {
			c.close()
			_ = c.conn.Close()
		}
		delete(h.clients, userID)
	}
}
