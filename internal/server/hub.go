package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaunagostinho/ins-dash/internal/render"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 64
)

// Frame is the JSON structure sent to WebSocket clients. A "state" frame
// carries every slot and track currently shown; "slots" and "tracks" frames
// carry only what changed.
type Frame struct {
	Type   string          `json:"type"`
	Slots  []render.Update `json:"slots,omitempty"`
	Tracks []render.Track  `json:"tracks,omitempty"`
	Stamp  int64           `json:"stamp"` // Unix ms
}

// Hub is the browser display: it fans dashboard writes out to every
// connected page.
type Hub struct {
	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	// state supplies the full paint for a newly connected page.
	state func() ([]render.Update, []render.Track)
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ApplySlots implements render.Display.
func (h *Hub) ApplySlots(updates []render.Update) {
	h.broadcast(Frame{Type: "slots", Slots: updates, Stamp: time.Now().UnixMilli()})
}

// ApplyTracks implements render.Display.
func (h *Hub) ApplyTracks(tracks []render.Track) {
	h.broadcast(Frame{Type: "tracks", Tracks: tracks, Stamp: time.Now().UnixMilli()})
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSend),
	}

	// Register before reading the state so no diff falls between the two.
	h.clientsMu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	if h.state != nil {
		slots, tracks := h.state()
		if data, err := json.Marshal(Frame{Type: "state", Slots: slots, Tracks: tracks, Stamp: time.Now().UnixMilli()}); err == nil {
			client.send <- data
		}
	}
	h.clientsMu.Unlock()

	log.Printf("[ws] client %s connected (%d total)", client.id, total)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive, detects close)
	go func() {
		defer func() {
			h.clientsMu.Lock()
			delete(h.clients, client)
			total := len(h.clients)
			close(client.send)
			h.clientsMu.Unlock()
			log.Printf("[ws] client %s disconnected (%d total)", client.id, total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[ws] marshal frame: %v", err)
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// A page that misses a diff would show stale slots; drop it so it
			// reconnects and gets a full state frame.
			log.Printf("[ws] client %s too slow, disconnecting", client.id)
			client.conn.Close()
		}
	}
}
