// Account HTTP handlers.
//
// This file exposes the unauthenticated REST endpoints of the API:
//   - POST /api/register  (create an account, returns profile + token)
//   - POST /api/login     (verify credentials, returns profile + token)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. It also defines the service
// contracts and the Handlers aggregate shared by the rest of the package.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crazychat/chat-backend/internal/domain"
	"github.com/crazychat/chat-backend/internal/http/middleware"
	"github.com/crazychat/chat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IdentityService defines account and session operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IdentityService interface {
	// Register creates an account and returns the profile plus a session token.
	Register(ctx context.Context, username, email, password string) (*services.AuthResult, error)
	// Login verifies credentials and returns the profile plus a session token.
	Login(ctx context.Context, username, password string) (*services.AuthResult, error)
	// ListUsers returns all public profiles sorted by username.
	ListUsers(ctx context.Context) ([]domain.Profile, error)
}

// ConversationService defines message persistence operations consumed by
// HTTP handlers. Live fan-out is the hub's concern, not this surface's.
type ConversationService interface {
	// History returns the ascending transcript between two users.
	History(ctx context.Context, userA, userB uint, limit int) ([]services.HistoryEntry, error)
	// ChatList returns the caller's inbox rows newest-first.
	ChatList(ctx context.Context, userID uint) ([]services.ChatEntry, error)
	// Edit replaces a message body; only the sender may edit.
	Edit(ctx context.Context, actorID, messageID uint, newBody string) (*domain.Message, error)
	// Delete removes a message for the actor or tombstones it for everyone.
	Delete(ctx context.Context, actorID, messageID uint, forEveryone bool) (*services.DeleteResult, error)
	// MarkRead flags everything unread from counterpartID as read.
	MarkRead(ctx context.Context, readerID, counterpartID uint) (int64, error)
}

// ContactService defines contact-list and block-list operations consumed by
// HTTP handlers.
type ContactService interface {
	Add(ctx context.Context, ownerID uint, contactEmail, name string) (*services.ContactEntry, error)
	List(ctx context.Context, ownerID uint) ([]services.ContactEntry, error)
	Remove(ctx context.Context, ownerID, contactRowID uint) error
	Block(ctx context.Context, ownerID, blockedID uint) (*domain.Block, error)
	Unblock(ctx context.Context, ownerID, blockedID uint) error
	ListBlocked(ctx context.Context, ownerID uint) ([]services.BlockedEntry, error)
}

//
// Handler wiring
//

// Handlers groups the REST endpoints for accounts, conversations, and
// contacts. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	idSvc      IdentityService
	convSvc    ConversationService
	contactSvc ContactService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(idSvc IdentityService, convSvc ConversationService, contactSvc ContactService) *Handlers {
	return &Handlers{idSvc: idSvc, convSvc: convSvc, contactSvc: contactSvc}
}

// currentUser extracts the authenticated user id set by the auth middleware.
// Routes behind middleware.Auth always have it; a zero return means the
// route was misregistered and the caller should 401.
func currentUser(c *gin.Context) uint {
	id, _ := middleware.UserID(c)
	return id
}

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse wraps the profile and session token returned by register and
// login.
type AuthResponse struct {
	User  *domain.Profile `json:"user"`
	Token string          `json:"token"`
}

//
// Handlers
//

// Register creates a new account. Uniqueness conflicts return 409 with a
// message naming the colliding field; validation failures return 400.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password are required")
		return
	}

	res, err := h.idSvc.Register(c.Request.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, AuthResponse{User: res.User, Token: res.Token})
	case errors.Is(err, services.ErrDuplicateUsername):
		fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
	case errors.Is(err, services.ErrDuplicateEmail):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create account")
	}
}

// Login verifies credentials. Unknown usernames and wrong passwords are
// indistinguishable to the client (both 401).
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	res, err := h.idSvc.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusOK, AuthResponse{User: res.User, Token: res.Token})
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not log in")
	}
}
