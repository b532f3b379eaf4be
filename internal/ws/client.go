// Client: one live websocket connection and its two pumps.
//
// readPump parses inbound frames into typed envelopes and hands them to the
// hub's event loop; writePump drains the buffered send channel and keeps the
// connection alive with pings. All connection state (auth state, identity,
// presence) is owned and mutated by the hub loop only.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/crazychat/chat-backend/internal/domain"
)

// connState is the per-connection lifecycle: Unauthenticated is the only
// state accepting an authenticate event; Closed is terminal.
type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

// Client wraps one websocket connection. The exported surface is what the
// hub and tests need; the pumps are internal plumbing.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	// Hub-loop-owned state. Never read or written outside the event loop.
	state    connState
	userID   uint
	username string
	profile  *domain.Profile

	disconnectOnce sync.Once
}

// newClient builds a client with the hub's configured send buffer.
func newClient(h *Hub, conn *websocket.Conn, log zerolog.Logger) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		log:  log,
	}
}

// readPump reads frames until the connection drops, posting each parsed
// envelope to the hub. It blocks on the hub's event queue so a burst of
// sends from one connection is accepted one at a time, each handled to
// completion before the next.
func (c *Client) readPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(c.hub.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("connection dropped")
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.log.Debug().Msg("malformed frame ignored")
			continue
		}
		c.hub.post(event{kind: kindFrame, client: c, name: env.Event, data: env.Data})
	}
}

// writePump drains the send channel and pings on an interval derived from
// the pong deadline. Exits when the hub closes the channel or a write fails,
// closing the underlying connection either way.
func (c *Client) writePump() {
	pingPeriod := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect posts the terminal disconnect event exactly once. Safe to call
// from any goroutine; the hub does the actual teardown.
func (c *Client) disconnect() {
	c.disconnectOnce.Do(func() {
		c.hub.post(event{kind: kindDisconnect, client: c})
	})
}

// closeSlow tears down the physical connection of a client whose send
// buffer is full; its readPump then surfaces the usual disconnect path.
func (c *Client) closeSlow() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
