// Package services defines the business logic for identities, contacts,
// blocks, and conversations. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages, HTTP status codes, or websocket error events is
// performed at the transport layer.
package services

import "errors"

// Identity-related errors.
var (
	// ErrValidation indicates malformed input, rejected before any state
	// change. Wrap it with a detail message: fmt.Errorf("%w: ...", ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUsername is returned when registering an already-taken username.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when registering an already-used email.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrInvalidCredentials is returned on login failure. It deliberately does
	// not say whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a session token fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Conversation-related errors.
var (
	// ErrMessageNotFound indicates the referenced message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMessageDeleted is returned when attempting to edit a message already
	// deleted for everyone.
	ErrMessageDeleted = errors.New("message already deleted")

	// ErrNotAuthorized indicates the actor lacks rights over the target entity
	// (e.g. editing someone else's message).
	ErrNotAuthorized = errors.New("not authorized")
)

// Contact- and block-related errors.
var (
	// ErrContactNotFound indicates the referenced contact entry does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrAlreadyContact is returned when adding a contact that already exists
	// for this owner.
	ErrAlreadyContact = errors.New("contact already exists")

	// ErrAlreadyBlocked is returned when blocking a user already blocked by
	// this owner.
	ErrAlreadyBlocked = errors.New("user already blocked")

	// ErrBlockNotFound indicates the referenced block entry does not exist.
	ErrBlockNotFound = errors.New("block not found")
)
