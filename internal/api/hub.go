package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"incentive-token/internal/domain"
	"incentive-token/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	clientBufferSz = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts committed ledger events to websocket clients. It is a
// ledger observer; slow clients miss events instead of stalling the ledger.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	logger  *log.Logger
}

type hubClient struct {
	send    chan EventView
	account domain.Account // empty means all events
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		logger:  logger,
	}
}

// OnEvent implements ledger.Observer.
func (h *Hub) OnEvent(e domain.Event) {
	view := NewEventView(&e)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.account.IsZero() && !touches(&e, c.account) {
			continue
		}
		select {
		case c.send <- view:
		default:
			// Client is slow, skip
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateStreamClients(n)
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateStreamClients(n)
}

// serve upgrades the request and streams events until the client goes away.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, account domain.Account) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &hubClient{
		send:    make(chan EventView, clientBufferSz),
		account: account,
	}
	h.register(c)
	defer h.unregister(c)

	// Reader: handles pongs and detects close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func touches(e *domain.Event, a domain.Account) bool {
	return e.Caller == a || e.Account == a || e.Sender == a || e.Recipient == a
}
