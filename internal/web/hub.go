package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Local single-user shell; restrict if ever exposed.
		return true
	},
}

// serverMessage goes out to the browser shell.
type serverMessage struct {
	Type string `json:"type"` // "status" | "log" | "delta"
	Text string `json:"text"`
}

// clientMessage comes in from the browser shell as a JSON text frame. Binary
// frames carry raw 16kHz PCM and bypass this struct entirely.
type clientMessage struct {
	Type string `json:"type"` // "text"
	Text string `json:"text,omitempty"`
}

// Hub fans status and chat-log lines out to every connected browser. It is the
// agent's UI collaborator: Status and Log are fire-and-forget, a dead client
// is dropped rather than waited on.
type Hub struct {
	mu         sync.Mutex
	conns      map[*websocket.Conn]struct{}
	lastStatus string
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{}), lastStatus: "READY"}
}

// Status broadcasts the current state label and remembers it for late joiners.
func (h *Hub) Status(text string) {
	h.mu.Lock()
	h.lastStatus = text
	h.writeAllLocked(serverMessage{Type: "status", Text: text})
	h.mu.Unlock()
}

// Log broadcasts one chat-log line.
func (h *Hub) Log(line string) {
	h.mu.Lock()
	h.writeAllLocked(serverMessage{Type: "log", Text: line})
	h.mu.Unlock()
}

// Delta broadcasts one streamed reply fragment.
func (h *Hub) Delta(text string) {
	h.mu.Lock()
	h.writeAllLocked(serverMessage{Type: "delta", Text: text})
	h.mu.Unlock()
}

// writeAllLocked serializes all websocket writes under h.mu; gorilla conns do
// not allow concurrent writers.
func (h *Hub) writeAllLocked(msg serverMessage) {
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}

// ClientCount reports connected shells.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeWS upgrades one browser connection and pumps it until it closes.
// JSON text frames with type "text" are handed to onText; binary frames are
// handed to onPCM as raw microphone audio.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, onText func(string), onPCM func([]byte)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	status := h.lastStatus
	_ = conn.WriteJSON(serverMessage{Type: "status", Text: status})
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			if onPCM != nil && len(data) > 0 {
				onPCM(data)
			}
		case websocket.TextMessage:
			var m clientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				log.Printf("ws: bad client frame: %v", err)
				continue
			}
			if m.Type == "text" && onText != nil {
				onText(m.Text)
			}
		}
	}
}
