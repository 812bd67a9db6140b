package ordercontroller

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	// events queued per client before it is considered stalled
	sendBuffer = 16
)

// Event is what admin clients receive on the order feed.
type Event struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
}

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// client owns one connection. Only writeLoop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writeLoop drains send until the hub closes it or a write fails.
func (cl *client) writeLoop() {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeWait))
}

// Hub fans order events out to connected admin websocket clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub accepts upgrades from the given origins; "*" allows any.
func NewHub(allowedOrigins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// GET /api/orders/admin/ws
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("❌ Order feed upgrade failed: %v", err)
			return
		}
		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		h.add(cl)
		go cl.writeLoop()
		defer h.remove(cl)

		// Clients only listen; reading detects the disconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	h.drop(cl)
	h.mu.Unlock()
}

// drop must be called with mu held. Closing send stops the client's writeLoop.
func (h *Hub) drop(cl *client) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues the event for every client without waiting on the
// network. Clients whose queue is full are disconnected. A nil hub is a no-op.
func (h *Hub) Broadcast(eventType string, order *models.Order) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Order: order})
	if err != nil {
		log.Printf("❌ Failed to encode order event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			log.Printf("⚠️ Dropping stalled order feed client")
			h.drop(cl)
		}
	}
}

// Close disconnects every client with a going-away frame.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.drop(cl)
	}
}
