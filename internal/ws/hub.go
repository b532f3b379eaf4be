package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/crazychat/chat-backend/internal/config"
	"github.com/crazychat/chat-backend/internal/domain"
	"github.com/crazychat/chat-backend/internal/services"
)

// Identity is the slice of IdentityService the hub needs: token verification
// at authentication time and profile resolution for the session snapshot.
type Identity interface {
	Verify(token string) (*services.TokenClaims, error)
	Resolve(ctx context.Context, id uint) (*domain.Profile, error)
}

// Conversations is the slice of ConversationService the hub routes through.
// Every mutation persists before any live fan-out happens.
type Conversations interface {
	Send(ctx context.Context, senderID, receiverID uint, body string) (*domain.Message, error)
	Edit(ctx context.Context, actorID, messageID uint, newBody string) (*domain.Message, error)
	Delete(ctx context.Context, actorID, messageID uint, forEveryone bool) (*services.DeleteResult, error)
	MarkRead(ctx context.Context, readerID, counterpartID uint) (int64, error)
}

// eventKind separates transport-originated events from client frames so a
// frame can never spoof connection lifecycle transitions.
type eventKind int

const (
	kindFrame eventKind = iota
	kindConnect
	kindDisconnect
)

// event is one unit of work for the hub loop.
type event struct {
	kind   eventKind
	client *Client
	name   string
	data   json.RawMessage
}

// Hub is the single-threaded coordination engine of the live layer.
//
// Every inbound occurrence (a new connection, a parsed frame, a disconnect)
// becomes one event on the hub's queue, and one goroutine (Run) handles each
// to completion before dequeuing the next. That serialization means the
// presence registry and per-connection auth state need no locks, and
// per-pair delivery order follows persistence order.
//
// Business rules live in the services; the hub decides authentication
// gating, presence bookkeeping, and who receives which outbound event.
type Hub struct {
	cfg      config.WSConfig
	identity Identity
	convs    Conversations
	log      zerolog.Logger

	registry *PresenceRegistry
	clients  map[*Client]struct{}

	events chan event
	quit   chan struct{}
}

// NewHub wires the hub to its collaborators. Call Run in a goroutine to
// start the event loop and Close to stop it.
func NewHub(cfg config.WSConfig, identity Identity, convs Conversations, log zerolog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		identity: identity,
		convs:    convs,
		log:      log.With().Str("component", "hub").Logger(),
		registry: NewPresenceRegistry(),
		clients:  make(map[*Client]struct{}),
		events:   make(chan event, cfg.EventBuffer),
		quit:     make(chan struct{}),
	}
}

// Run processes events until Close is called. It is the only goroutine that
// touches the registry, the client set, or any client's auth state.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.events:
			h.dispatch(ev)
		case <-h.quit:
			for c := range h.clients {
				c.closeSlow()
			}
			return
		}
	}
}

// Close stops the event loop and drops all connections.
func (h *Hub) Close() {
	close(h.quit)
}

// post enqueues an event, blocking until the loop accepts it. This is the
// backpressure point: a connection's readPump does not read the next frame
// until the previous one is queued.
func (h *Hub) post(ev event) {
	select {
	case h.events <- ev:
	case <-h.quit:
	}
}

// dispatch is the single authentication guard of the live layer: except for
// authenticate itself, every frame requires an authenticated connection.
func (h *Hub) dispatch(ev event) {
	c := ev.client
	switch ev.kind {
	case kindConnect:
		h.clients[c] = struct{}{}
		wsConnections.Inc()
		return
	case kindDisconnect:
		h.handleDisconnect(c)
		return
	}

	wsEvents.WithLabelValues(ev.name).Inc()

	if ev.name == EventAuthenticate {
		h.handleAuthenticate(c, ev.data)
		return
	}
	if c.state != stateAuthenticated {
		h.emitError(c, "not_authenticated", "not authenticated")
		return
	}

	switch ev.name {
	case EventSendMessage:
		h.handleSend(c, ev.data)
	case EventTyping:
		h.handleTyping(c, ev.data)
	case EventMarkRead:
		h.handleMarkRead(c, ev.data)
	case EventEditMessage:
		h.handleEdit(c, ev.data)
	case EventDeleteMessage:
		h.handleDelete(c, ev.data)
	default:
		h.emitError(c, "bad_request", "unknown event")
	}
}

// handleAuthenticate performs the Unauthenticated → Authenticated transition:
// verify the token (once per connection), resolve the profile, register
// presence, then announce: authenticated to self, user-status to everyone,
// the roster snapshot to self only.
func (h *Hub) handleAuthenticate(c *Client, data json.RawMessage) {
	if c.state != stateUnauthenticated {
		h.emitError(c, "bad_request", "already authenticated")
		return
	}

	var p AuthenticatePayload
	_ = json.Unmarshal(data, &p)
	claims, err := h.identity.Verify(p.Token)
	if err != nil {
		h.emit(c, EventAuthError, AuthErrorPayload{Error: "Invalid token"})
		return
	}
	profile, err := h.identity.Resolve(context.Background(), claims.UserID)
	if err != nil {
		h.emit(c, EventAuthError, AuthErrorPayload{Error: "Invalid token"})
		return
	}

	c.state = stateAuthenticated
	c.userID = claims.UserID
	c.username = claims.Username
	c.profile = profile

	// Last-writer-wins: a previous connection for this identity loses its
	// registration but is not force-closed.
	if prev := h.registry.Register(c.userID, c); prev != nil {
		h.log.Info().Uint("user_id", c.userID).Msg("presence handle replaced")
	}
	wsSessions.Set(float64(h.registry.Len()))

	h.emit(c, EventAuthenticated, AuthenticatedPayload{Success: true, User: profile})
	h.broadcast(EventUserStatus, UserStatusPayload{UserID: c.userID, Username: c.username, Online: true})
	h.emit(c, EventOnlineUsers, OnlineUsersPayload{Users: h.registry.OnlineUserIDs()})

	h.log.Info().Uint("user_id", c.userID).Str("username", c.username).Msg("user authenticated")
}

// handleDisconnect tears a connection down. Presence is removed only if this
// connection still held the registration, and offline is broadcast only in
// that case. A displaced handle disconnecting stays silent because the
// identity is still online through its newer connection.
func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	wsConnections.Dec()

	wasRegistered := h.registry.Unregister(c)
	wsSessions.Set(float64(h.registry.Len()))

	prevState := c.state
	c.state = stateClosed
	close(c.send)

	if prevState == stateAuthenticated && wasRegistered {
		h.broadcast(EventUserStatus, UserStatusPayload{UserID: c.userID, Username: c.username, Online: false})
		h.log.Info().Uint("user_id", c.userID).Msg("user disconnected")
	}
}

// handleSend persists the message unconditionally (store-and-forward), then
// delivers live to the receiver only if online, and always confirms to the
// sender with the canonical id and timestamp.
func (h *Hub) handleSend(c *Client, data json.RawMessage) {
	var p SendMessagePayload
	_ = json.Unmarshal(data, &p)

	m, err := h.convs.Send(context.Background(), c.userID, p.ReceiverID, p.Message)
	if err != nil {
		h.emitError(c, errCode(err), err.Error())
		return
	}

	payload := h.messagePayload(c, m)
	if rc, ok := h.registry.ClientFor(m.ReceiverID); ok {
		h.emit(rc, EventNewMessage, payload)
	}
	h.emit(c, EventMessageSent, payload)
}

// handleTyping relays the typing state to the receiver when online. Nothing
// is persisted or buffered; a missed toggle is irrelevant because only the
// latest state matters to the receiver's UI.
func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	var p TypingPayload
	_ = json.Unmarshal(data, &p)

	if rc, ok := h.registry.ClientFor(p.ReceiverID); ok {
		h.emit(rc, EventUserTyping, UserTypingPayload{
			UserID:   c.userID,
			Username: c.username,
			IsTyping: p.IsTyping,
		})
	}
}

// handleMarkRead flips the read flag on everything unread from the given
// sender and notifies that sender, if online, that their messages were read.
func (h *Hub) handleMarkRead(c *Client, data json.RawMessage) {
	var p MarkReadPayload
	_ = json.Unmarshal(data, &p)

	if _, err := h.convs.MarkRead(context.Background(), c.userID, p.SenderID); err != nil {
		h.emitError(c, errCode(err), err.Error())
		return
	}
	if sc, ok := h.registry.ClientFor(p.SenderID); ok {
		h.emit(sc, EventMessagesRead, MessagesReadPayload{UserID: c.userID})
	}
}

// handleEdit persists the body replacement, notifies the receiver if online,
// and always confirms to the actor.
func (h *Hub) handleEdit(c *Client, data json.RawMessage) {
	var p EditMessagePayload
	_ = json.Unmarshal(data, &p)

	m, err := h.convs.Edit(context.Background(), c.userID, p.MessageID, p.Message)
	if err != nil {
		h.emitError(c, errCode(err), err.Error())
		return
	}

	payload := MessageEditedPayload{MessageID: m.ID, Message: m.Body, Edited: true}
	if rc, ok := h.registry.ClientFor(m.ReceiverID); ok {
		h.emit(rc, EventMessageEdited, payload)
	}
	h.emit(c, EventMessageEditConfirmed, payload)
}

// handleDelete applies one of the two deletion variants. Only "for everyone"
// notifies the counterpart; a "for me" removal is invisible to them (beyond
// the shared row disappearing). The actor always gets a confirmation naming
// the variant.
func (h *Hub) handleDelete(c *Client, data json.RawMessage) {
	var p DeleteMessagePayload
	_ = json.Unmarshal(data, &p)

	res, err := h.convs.Delete(context.Background(), c.userID, p.MessageID, p.DeleteForEveryone)
	if err != nil {
		h.emitError(c, errCode(err), err.Error())
		return
	}

	payload := MessageDeletedPayload{MessageID: res.MessageID, DeleteForEveryone: res.ForEveryone}
	if res.ForEveryone {
		if rc, ok := h.registry.ClientFor(res.CounterpartID); ok {
			h.emit(rc, EventMessageDeleted, payload)
		}
	}
	h.emit(c, EventMessageDeleteConfirm, payload)
}

// messagePayload builds the canonical wire shape for a persisted message,
// using the sender's session profile snapshot.
func (h *Hub) messagePayload(sender *Client, m *domain.Message) MessagePayload {
	p := MessagePayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Body,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if sender.profile != nil {
		p.SenderUsername = sender.profile.Username
		p.SenderAvatar = sender.profile.Avatar
	}
	return p
}

// emit marshals an envelope to one client. The send never blocks the loop:
// a client whose buffer is full is dropped and recovers via history fetch.
func (h *Hub) emit(c *Client, name string, data any) {
	if c.state == stateClosed {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Str("event", name).Msg("marshal outbound payload")
		return
	}
	frame, _ := json.Marshal(Envelope{Event: name, Data: raw})
	select {
	case c.send <- frame:
	default:
		h.log.Warn().Str("event", name).Msg("send buffer full, dropping connection")
		c.closeSlow()
	}
}

// emitError reports a failure to the originating connection only.
func (h *Hub) emitError(c *Client, code, msg string) {
	h.emit(c, EventError, ErrorPayload{Code: code, Error: msg})
}

// broadcast emits to every open connection, authenticated or not (presence
// changes are public to anyone connected, matching the client contract).
func (h *Hub) broadcast(name string, data any) {
	for c := range h.clients {
		h.emit(c, name, data)
	}
}

// errCode maps service errors onto the stable error-code taxonomy shared
// with the HTTP layer.
func errCode(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "bad_request"
	case errors.Is(err, services.ErrMessageNotFound), errors.Is(err, services.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, services.ErrNotAuthorized):
		return "forbidden"
	case errors.Is(err, services.ErrMessageDeleted):
		return "conflict"
	default:
		return "internal_error"
	}
}
