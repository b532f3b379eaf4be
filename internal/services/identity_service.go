// Package services – IdentityService
//
// This file implements the IdentityService, which owns registration, login,
// session-token verification, and identity resolution. It validates and
// normalizes credentials, hashes passwords with bcrypt, derives deterministic
// avatar references, and issues HS256 session tokens bound to
// (identity, username).
//
// Token verification happens once per live connection, at authentication
// time; it is not re-checked per event.
//
// Observability: public methods that touch the store are OpenTelemetry-
// instrumented; spans carry the acting user where applicable.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crazychat/chat-backend/internal/domain"
)

const (
	minUsernameRunes = 3
	minPasswordRunes = 6
)

// emailRE is the minimal "localpart@domain.tld" shape check. Anything
// stricter rejects addresses that are deliverable in practice.
var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// emailFolder canonicalizes emails for storage and lookup. Policy: emails are
// Unicode case-folded (uniqueness is case-insensitive), usernames are stored
// and matched verbatim (uniqueness is case-sensitive).
var emailFolder = cases.Fold()

// UserRepo defines the repository contract required by IdentityService.
type UserRepo interface {
	// CreateUser inserts a new user row.
	CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash, avatar string) (*domain.User, error)

	// GetUser fetches a user by ID.
	GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error)

	// GetUserByUsername fetches a user by exact username.
	GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)

	// GetUserByEmail fetches a user by canonical (case-folded) email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// ListUsers returns all users ordered by username.
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)
}

// TokenClaims is the JWT payload bound to a session token.
type TokenClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthResult carries the outcome of a successful registration or login.
type AuthResult struct {
	User  *domain.Profile `json:"user"`
	Token string          `json:"token"`
}

// IdentityService authenticates users and resolves identities to profiles.
type IdentityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo

	// Secret signs and verifies session tokens (HS256).
	Secret []byte
	// TokenTTL bounds session token lifetime.
	TokenTTL time.Duration
	// BcryptCost is the password hashing work factor.
	BcryptCost int
}

// NewIdentityService constructs an IdentityService with sane defaults.
func NewIdentityService(db *gorm.DB, r UserRepo, secret string) *IdentityService {
	return &IdentityService{
		DB:         db,
		Repo:       r,
		Secret:     []byte(secret),
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Register validates and creates a new account, then issues a session token.
// Emails are case-folded for storage and lookup; the avatar reference is derived
// deterministically from the username.
func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	tr := otel.Tracer("services/IdentityService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	username = strings.TrimSpace(username)
	email = emailFolder.String(strings.TrimSpace(email))

	if utf8.RuneCountInString(username) < minUsernameRunes {
		return nil, fmt.Errorf("%w: username must be at least %d characters", ErrValidation, minUsernameRunes)
	}
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordRunes)
	}
	if !emailRE.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	if _, err := s.Repo.GetUserByUsername(ctx, s.DB, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.Repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return nil, err
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, username, email, string(hash), domain.AvatarURL(username))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))

	token, err := s.sign(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Profile(), Token: token}, nil
}

// Login verifies credentials and issues a session token. The bcrypt
// comparison is constant-effort; failures never reveal which field was wrong.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	tr := otel.Tracer("services/IdentityService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	u, err := s.Repo.GetUserByUsername(ctx, s.DB, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))

	token, err := s.sign(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Profile(), Token: token}, nil
}

// Verify parses and validates a session token, enforcing the HS256 method.
func (s *IdentityService) Verify(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve returns the public profile for an identity, or ErrUserNotFound.
func (s *IdentityService) Resolve(ctx context.Context, id uint) (*domain.Profile, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u.Profile(), nil
}

// ListUsers returns the public profiles of all accounts, sorted by username.
func (s *IdentityService) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	tr := otel.Tracer("services/IdentityService")
	ctx, span := tr.Start(ctx, "ListUsers", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Profile())
	}
	return out, nil
}

// sign issues an HS256 token bound to (identity, username).
func (s *IdentityService) sign(u *domain.User) (string, error) {
	claims := TokenClaims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.TokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}
