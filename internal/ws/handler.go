package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades HTTP requests to WebSocket connections and hands them to
// the hub. Authentication happens inside the connection (an authenticate
// frame), not at upgrade time, so the upgrade itself is open to any origin
// on the allowlist.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler builds the upgrade handler. An empty origin list and the
// wildcard both mean any origin is accepted; browsers are the only clients
// that send Origin anyway, and the token check gates everything that matters.
func NewHandler(hub *Hub, allowedOrigins []string, log zerolog.Logger) *Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser client
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// Serve is the Gin handler for the websocket endpoint. On a successful
// upgrade it registers the connection with the hub and starts the read and
// write pumps; the connection then lives entirely in the hub's world.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, h.log)
	h.hub.post(event{kind: kindConnect, client: client})

	go client.writePump()
	go client.readPump()
}
