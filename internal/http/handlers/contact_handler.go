// Contact and block-list HTTP handlers.
//
//   - GET    /api/contacts/:userId                      (list contacts)
//   - POST   /api/contacts                              (add by email)
//   - DELETE /api/contacts/:userId/:contactId           (remove)
//   - GET    /api/contacts/blocked/:userId              (list blocked)
//   - POST   /api/contacts/block                        (block a user)
//   - DELETE /api/contacts/block/:userId/:blockedId     (unblock)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crazychat/chat-backend/internal/services"
)

// AddContactRequest is the JSON payload for adding a contact by email.
type AddContactRequest struct {
	UserID uint   `json:"userId" binding:"required"`
	Email  string `json:"email" binding:"required"`
	Name   string `json:"name"`
}

// BlockRequest is the JSON payload for blocking a user.
type BlockRequest struct {
	UserID    uint `json:"userId" binding:"required"`
	BlockedID uint `json:"blockedId" binding:"required"`
}

// ListContacts returns the caller's contact list sorted by alias.
func (h *Handlers) ListContacts(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	contacts, err := h.contactSvc.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list contacts")
		return
	}
	ok(c, http.StatusOK, contacts)
}

// AddContact looks the target account up by email and saves it under an
// optional alias.
func (h *Handlers) AddContact(c *gin.Context) {
	var req AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId and email are required")
		return
	}
	if !sameUser(c, req.UserID) {
		return
	}

	entry, err := h.contactSvc.Add(c.Request.Context(), req.UserID, strings.TrimSpace(req.Email), req.Name)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, entry)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no account with that email")
	case errors.Is(err, services.ErrAlreadyContact):
		fail(c, http.StatusConflict, ErrCodeConflict, "contact already exists")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not add contact")
	}
}

// RemoveContact deletes one row from the caller's contact list.
func (h *Handlers) RemoveContact(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	contactID, valid := pathID(c, "contactId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	switch err := h.contactSvc.Remove(c.Request.Context(), uid, contactID); {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrContactNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not remove contact")
	}
}

// ListBlocked returns the users the caller has blocked.
func (h *Handlers) ListBlocked(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	blocked, err := h.contactSvc.ListBlocked(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list blocked users")
		return
	}
	ok(c, http.StatusOK, blocked)
}

// BlockUser adds a user to the caller's block list.
func (h *Handlers) BlockUser(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId and blockedId are required")
		return
	}
	if !sameUser(c, req.UserID) {
		return
	}

	b, err := h.contactSvc.Block(c.Request.Context(), req.UserID, req.BlockedID)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, b)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrAlreadyBlocked):
		fail(c, http.StatusConflict, ErrCodeConflict, "user already blocked")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not block user")
	}
}

// UnblockUser removes a user from the caller's block list.
func (h *Handlers) UnblockUser(c *gin.Context) {
	uid, valid := pathID(c, "userId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}
	blockedID, valid := pathID(c, "blockedId")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "blocked id must be a positive integer")
		return
	}
	if !sameUser(c, uid) {
		return
	}

	switch err := h.contactSvc.Unblock(c.Request.Context(), uid, blockedID); {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrBlockNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "block not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not unblock user")
	}
}
