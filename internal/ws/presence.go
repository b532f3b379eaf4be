// Presence registry: the single source of truth for "who is online".
//
// The registry maps identities to live connections in both directions. It is
// deliberately NOT synchronized: every access happens on the hub's event
// loop, which serializes all mutations (see Hub). Callers outside the loop
// must go through hub events, never touch the registry directly.
package ws

// PresenceRegistry binds identities to their single active connection.
// A new connection for an already-registered identity replaces the old
// handle (last-writer-wins); the displaced physical connection stays open
// but no longer receives deliveries.
type PresenceRegistry struct {
	byClient map[*Client]uint
	byUser   map[uint]*Client
}

// NewPresenceRegistry constructs an empty registry. One instance exists per
// process, created at startup and owned by the hub.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byClient: make(map[*Client]uint),
		byUser:   make(map[uint]*Client),
	}
}

// Register inserts or overwrites both directions for (userID, c) and returns
// the previous handle for that identity, if any.
func (r *PresenceRegistry) Register(userID uint, c *Client) (prev *Client) {
	if old, ok := r.byUser[userID]; ok && old != c {
		prev = old
		delete(r.byClient, old)
	}
	r.byUser[userID] = c
	r.byClient[c] = userID
	return prev
}

// Unregister removes both directions if c currently holds a registration.
// It reports whether an entry was actually removed, and is idempotent:
// double-disconnects and displaced handles are no-ops.
func (r *PresenceRegistry) Unregister(c *Client) bool {
	userID, ok := r.byClient[c]
	if !ok {
		return false
	}
	delete(r.byClient, c)
	if r.byUser[userID] == c {
		delete(r.byUser, userID)
	}
	return true
}

// IsOnline reports whether the identity has a live registered connection.
func (r *PresenceRegistry) IsOnline(userID uint) bool {
	_, ok := r.byUser[userID]
	return ok
}

// ClientFor returns the live connection handle for an identity.
func (r *PresenceRegistry) ClientFor(userID uint) (*Client, bool) {
	c, ok := r.byUser[userID]
	return c, ok
}

// OnlineUserIDs snapshots the currently online identities. Used once per
// connection, right after authentication, to seed the client's roster.
func (r *PresenceRegistry) OnlineUserIDs() []uint {
	out := make([]uint, 0, len(r.byUser))
	for id := range r.byUser {
		out = append(out, id)
	}
	return out
}

// Len returns the number of registered identities.
func (r *PresenceRegistry) Len() int {
	return len(r.byUser)
}
