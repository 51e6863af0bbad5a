package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/textann/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

var eventIDCounter atomic.Uint64

// EventEnvelope wraps every message on the event stream with type
// discrimination so clients can dispatch without sniffing the payload.
type EventEnvelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func newEnvelope(eventType string, payload any) (EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, err
	}
	now := time.Now()
	id := eventIDCounter.Add(1)
	return EventEnvelope{
		Type:      eventType,
		ID:        "evt-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.FormatUint(id, 10),
		Timestamp: now.UnixMilli(),
		Payload:   data,
	}, nil
}

// handleEvents upgrades the connection and streams model lifecycle events
// until the client disconnects or the gateway stops.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	stopped := g.stopped
	g.mu.RUnlock()

	if stopped {
		g.writeError(w, http.StatusServiceUnavailable, "event stream shut down")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	events, unsubscribe := g.models.Subscribe()

	g.clientsMu.Lock()
	g.clients[conn] = struct{}{}
	clientCount := len(g.clients)
	g.clientsMu.Unlock()

	if g.metrics != nil {
		g.metrics.wsConnections.Inc()
		g.metrics.wsClients.Set(float64(clientCount))
	}
	g.logger.Debug("event stream client connected", "clients", clientCount)

	g.wg.Add(2)
	go g.readLoop(conn)
	go g.writeLoop(conn, events, unsubscribe)
}

// readLoop drains client frames so pong handling works and disconnects
// are noticed. Inbound data frames are ignored.
func (g *Gateway) readLoop(conn *websocket.Conn) {
	defer g.wg.Done()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			g.dropClient(conn)
			return
		}
	}
}

// writeLoop forwards lifecycle events to one client and keeps the
// connection alive with pings.
func (g *Gateway) writeLoop(conn *websocket.Conn, events <-chan model.Event, unsubscribe func()) {
	defer g.wg.Done()
	defer unsubscribe()
	defer g.dropClient(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			envelope, err := newEnvelope("model_event", event)
			if err != nil {
				g.logger.Warn("event encode failed", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(envelope); err != nil {
				return
			}
			if g.metrics != nil {
				g.metrics.wsEventsSent.Inc()
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-g.shutdown:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			)
			return
		}
	}
}

// dropClient removes a client from the registry and closes the socket.
// Safe to call from both pump goroutines; the close is idempotent.
func (g *Gateway) dropClient(conn *websocket.Conn) {
	g.clientsMu.Lock()
	_, present := g.clients[conn]
	delete(g.clients, conn)
	clientCount := len(g.clients)
	g.clientsMu.Unlock()

	_ = conn.Close()

	if present {
		if g.metrics != nil {
			g.metrics.wsClients.Set(float64(clientCount))
		}
		g.logger.Debug("event stream client disconnected", "clients", clientCount)
	}
}

// closeAllClients force-closes remaining connections during Stop.
func (g *Gateway) closeAllClients() {
	g.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(g.clients))
	for conn := range g.clients {
		conns = append(conns, conn)
	}
	g.clientsMu.Unlock()

	for _, conn := range conns {
		g.dropClient(conn)
	}
}
