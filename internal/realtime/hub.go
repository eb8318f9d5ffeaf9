package realtime

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event names broadcast after successful mutations.
const (
	EventTodoCreated   = "todo:created"
	EventTodoUpdated   = "todo:updated"
	EventTodoDeleted   = "todo:deleted"
	EventTodoReordered = "todo:reordered"

	// EventConnectionEstablished carries the connection id assigned to a
	// freshly connected client. Clients echo that id back in the
	// X-Socket-ID header of mutating requests so their own broadcasts can
	// be suppressed.
	EventConnectionEstablished = "connection:established"
)

// Event is the frame sent to websocket clients.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// sendBuffer bounds how many undelivered events a connection may queue
// before further events are dropped for it.
const sendBuffer = 16

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub is the registry of live websocket connections. Broadcasts are
// best-effort: a failed or slow connection loses events but never affects
// the HTTP request that triggered them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST API is already open to any origin; the socket follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request, registers the connection under a fresh id,
// and tells the client that id. The connection stays registered until the
// peer goes away or Shutdown is called.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	c.send <- Event{Name: EventConnectionEstablished, Data: c.id}

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast queues the event for every registered connection except the one
// identified by exclude. An empty exclude reaches everyone, including the
// sender. Connections with a full queue drop the event.
func (h *Hub) Broadcast(event string, data interface{}, exclude string) {
	ev := Event{Name: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if id == exclude {
			continue
		}
		select {
		case c.send <- ev:
		default:
			log.Printf("websocket client %s is not keeping up, dropping %s", id, event)
		}
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and empties the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// writePump is the single writer for a connection; it drains the send
// channel until the connection is removed.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			h.remove(c)
			return
		}
	}
}

// readPump discards inbound frames. Clients talk to the server over HTTP;
// the read loop exists to notice when the peer disconnects.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}
