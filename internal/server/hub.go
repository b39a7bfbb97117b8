package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/session"
)

// Hub fans events out to every connected websocket client: camera-window
// notifications from the session and transcode progress from the saver.
// Delivery is best-effort; a slow or broken client is dropped.
type Hub struct {
	logger   hclog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// ProgressEvent is the transcode progress envelope broadcast to clients.
type ProgressEvent struct {
	Type    string  `json:"type"`
	JobID   string  `json:"job_id"`
	Percent float64 `json:"percent"`
	Time    string  `json:"time"`
}

// RecordingEvent announces recorder state changes to clients.
type RecordingEvent struct {
	Type            string  `json:"type"`
	IsRecording     bool    `json:"is_recording"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// NewHub creates an event hub.
func NewHub(logger hclog.Logger) *Hub {
	return &Hub{
		logger: logger.Named("ws-hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The control API is loopback-only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", count)

	// Reads are discarded; the read loop only detects disconnect.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one JSON event to every client.
func (h *Hub) Broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Notify implements session.Notifier: camera-window coordination events go
// out on the same socket as everything else.
func (h *Hub) Notify(n session.Notification) {
	h.Broadcast(n)
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
