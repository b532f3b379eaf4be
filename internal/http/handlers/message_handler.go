// Message HTTP handlers.
//
//   - GET    /api/chats/:userId/messages/:otherUserId  (conversation history)
//   - PUT    /api/messages/:messageId                   (edit body, sender only)
//   - DELETE /api/messages/:messageId                   (delete for me / everyone)
//   - POST   /api/messages/read/:senderId               (mark unread from sender read)
//
// Mutations done over REST are persisted only; live propagation to an open
// counterpart session happens when clients mutate over the websocket instead.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crazychat/chat-backend/internal/services"
)

// EditMessageRequest is the JSON payload for editing a message body.
type EditMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// MarkReadResponse reports how many rows a read-marking flipped.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// History returns the transcript between the caller and another user in
// ascending order. The optional `limit` query bounds the page size.
func (h *Handlers) History(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	other, valid := pathID(c, "otherUserId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "other user id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	limit := queryInt(c, "limit", 0) // 0 lets the service default apply
	entries, err := h.convSvc.History(c.Request.Context(), uid, other, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load history")
		return
	}
	ok(c, http.StatusOK, entries)
}

// EditMessage replaces a message body. Only the original sender may edit,
// and a deleted message stays deleted (409).
func (h *Handlers) EditMessage(c *gin.Context) {
	msgID, valid := pathID(c, "messageId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a positive integer")
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message body required")
		return
	}

	m, err := h.convSvc.Edit(c.Request.Context(), currentUser(c), msgID, req.Message)
	switch {
	case err == nil:
		ok(c, http.StatusOK, m)
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case errors.Is(err, services.ErrNotAuthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the sender can edit a message")
	case errors.Is(err, services.ErrMessageDeleted):
		fail(c, http.StatusConflict, ErrCodeConflict, "message already deleted")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not edit message")
	}
}

// DeleteMessage removes a message. With `deleteForEveryone=true` the sender
// tombstones it for both parties; otherwise any participant removes it from
// the shared record.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	msgID, valid := pathID(c, "messageId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a positive integer")
		return
	}
	forEveryone := c.Query("deleteForEveryone") == "true"

	_, err := h.convSvc.Delete(c.Request.Context(), currentUser(c), msgID, forEveryone)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case errors.Is(err, services.ErrNotAuthorized):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not a participant of this message")
	case errors.Is(err, services.ErrMessageDeleted):
		fail(c, http.StatusConflict, ErrCodeConflict, "message already deleted")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete message")
	}
}

// MarkRead flags every unread message from senderId to the caller as read
// and reports the affected row count. Marking an empty set is a no-op 200.
func (h *Handlers) MarkRead(c *gin.Context) {
	senderID, valid := pathID(c, "senderId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender id must be a positive integer")
		return
	}

	n, err := h.convSvc.MarkRead(c.Request.Context(), currentUser(c), senderID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not mark messages read")
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: n})
}
