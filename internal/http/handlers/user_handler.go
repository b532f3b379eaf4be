// User and inbox HTTP handlers.
//
//   - GET /api/users           (all public profiles, for the people picker)
//   - GET /api/chats/:userId   (the caller's inbox: one row per counterpart)
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// pathID parses a numeric path parameter, returning (0, false) on garbage.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// queryInt parses an optional integer query parameter, returning def when the
// parameter is absent or not an integer.
func queryInt(c *gin.Context, name string, def int) int {
	s := c.Query(name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// sameUser ensures a path user id matches the authenticated identity.
// A mismatch is a 403: the token is valid, the resource is someone else's.
func sameUser(c *gin.Context, pathUserID uint) bool {
	if pathUserID != currentUser(c) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "user id does not match authenticated user")
		return false
	}
	return true
}

// ListUsers returns every registered profile sorted by username.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.idSvc.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list users")
		return
	}
	ok(c, http.StatusOK, users)
}

// ListChats returns the caller's inbox, newest conversation first, with the
// last message and unread count per counterpart.
func (h *Handlers) ListChats(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	chats, err := h.convSvc.ChatList(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load chats")
		return
	}
	ok(c, http.StatusOK, chats)
}
