package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds per-client queued payloads; a client that
	// cannot drain it is dropped rather than stalling the feed.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is enforced by the HTTP middleware stack.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient adapts one WebSocket connection to the feed hub.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) ID() string { return c.id }

// Send queues a payload for the client without blocking the broadcast.
func (c *wsClient) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// ThreatStream handles GET /ws/threat-stream: upgrades the connection
// and attaches it to the live feed.
func (h *Handler) ThreatStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.hub.Connect(client)

	go client.writePump()
	go client.readPump(h)
}

// writePump drains the send queue onto the connection and keeps the
// connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control frames and detects disconnects. Clients
// never send data on the threat stream; anything received is ignored.
func (c *wsClient) readPump(h *Handler) {
	defer func() {
		h.hub.Disconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "subscriber", c.id, "error", err)
			}
			return
		}
	}
}
