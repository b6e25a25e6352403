package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hupe1980/researchcrew/crew"
	"github.com/hupe1980/researchcrew/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: checkSameOrigin,
}

// checkSameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests whose Origin host matches the request host.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Event is the websocket message envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type delivery struct {
	run   string
	event Event
}

// Hub delivers progress events to the websocket clients subscribed to a run.
type Hub struct {
	clients   map[string]map[*websocket.Conn]bool
	broadcast chan delivery
	logger    logging.Logger
	mu        sync.Mutex
}

// NewHub creates an empty hub. Run must be started for events to be delivered.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Hub{
		clients:   make(map[string]map[*websocket.Conn]bool),
		broadcast: make(chan delivery, 256),
		logger:    logger,
	}
}

// Run writes queued events to their subscribers until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case d := <-h.broadcast:
			data, err := json.Marshal(d.event)
			if err != nil {
				h.logger.Warn("websocket event encode failed", "type", d.event.Type, "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients[d.run] {
				if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
					_ = client.Close()
					h.remove(d.run, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues event for the clients subscribed to run. Events for runs
// without subscribers are discarded. Deltas are dropped when the queue is
// full; lifecycle events wait up to a second.
func (h *Hub) Broadcast(run string, event Event) {
	if run == "" || h.ClientCount(run) == 0 {
		return
	}

	d := delivery{run: run, event: event}
	if event.Type == string(crew.TaskDelta) {
		select {
		case h.broadcast <- d:
		default:
		}
		return
	}

	timer := time.NewTimer(time.Second)
	defer timer.Stop()
	select {
	case h.broadcast <- d:
	case <-timer.C:
		h.logger.Warn("websocket broadcast channel full, dropping event", "type", event.Type, "run", run)
	}
}

// Register subscribes conn to run.
func (h *Hub) Register(run string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[run] == nil {
		h.clients[run] = make(map[*websocket.Conn]bool)
	}
	h.clients[run][conn] = true
}

// Unregister removes conn from run.
func (h *Hub) Unregister(run string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(run, conn)
}

// ClientCount returns the number of clients subscribed to run.
func (h *Hub) ClientCount(run string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[run])
}

// remove requires h.mu.
func (h *Hub) remove(run string, conn *websocket.Conn) {
	delete(h.clients[run], conn)
	if len(h.clients[run]) == 0 {
		delete(h.clients, run)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for run, conns := range h.clients {
		for client := range conns {
			_ = client.Close()
		}
		delete(h.clients, run)
	}
}

// parseProgressID returns the canonical form of a client supplied progress
// id, or "" when it is not a UUID.
func parseProgressID(s string) string {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return id.String()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	run := parseProgressID(r.URL.Query().Get("run"))
	if run == "" {
		http.Error(w, "missing or invalid run id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.hub.Register(run, conn)
	defer func() {
		s.hub.Unregister(run, conn)
		_ = conn.Close()
	}()

	// Clients only listen; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
