// Package services – ContactService
//
// This file implements ContactService, which manages the directional
// address book and block list. Contacts are added by the target's email and
// carry a local alias independent of the target's own username; aliases are
// normalized and clipped before storage. Blocks are plain directional pairs.
//
// Service-level errors (e.g. ErrAlreadyContact) are returned for predictable
// cases so transports can map them to responses consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/domain"
	"github.com/crazychat/chat-backend/internal/repo"
)

// ContactEntry is a contact row joined with the target's public profile.
type ContactEntry struct {
	ID        uint   `json:"id"`
	ContactID uint   `json:"contact_id"`
	Name      string `json:"contact_name"`
	Username  string `json:"contact_username"`
	Email     string `json:"contact_email"`
	Avatar    string `json:"contact_avatar"`
	CreatedAt string `json:"created_at"`
}

// BlockedEntry is a block row joined with the blocked user's public profile.
type BlockedEntry struct {
	ID        uint   `json:"id"`
	BlockedID uint   `json:"blocked_user_id"`
	Username  string `json:"blocked_username"`
	Email     string `json:"blocked_email"`
	Avatar    string `json:"blocked_avatar"`
	CreatedAt string `json:"created_at"`
}

// ContactService provides contact and block list operations. It enforces
// alias normalization rules and the one-row-per-pair invariants.
type ContactService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameMaxLen caps stored aliases by rune length.
	NameMaxLen int
}

// NewContactService constructs a ContactService with sane alias defaults.
func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{
		DB:         db,
		NameMaxLen: 255,
	}
}

// Add creates a contact entry for ownerID pointing at the user registered
// under contactEmail. The alias defaults to the target's username when blank.
func (s *ContactService) Add(ctx context.Context, ownerID uint, contactEmail, name string) (*ContactEntry, error) {
	target, err := repo.GetUserByEmail(ctx, s.DB, emailFolder.String(strings.TrimSpace(contactEmail)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if target.ID == ownerID {
		return nil, ErrNotAuthorized
	}

	if _, err := repo.GetContactByPair(ctx, s.DB, ownerID, target.ID); err == nil {
		return nil, ErrAlreadyContact
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name = normalizeName(name)
	if name == "" {
		name = target.Username
	}
	c, err := repo.CreateContact(ctx, s.DB, ownerID, target.ID, s.clip(name))
	if err != nil {
		return nil, err
	}
	return contactEntry(c, target.Profile()), nil
}

// List returns the owner's contacts joined with the targets' profiles.
// Entries whose target account no longer exists are skipped.
func (s *ContactService) List(ctx context.Context, ownerID uint) ([]ContactEntry, error) {
	rows, err := repo.ListContacts(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]ContactEntry, 0, len(rows))
	for i := range rows {
		u, err := repo.GetUser(ctx, s.DB, rows[i].ContactID)
		if err != nil {
			continue
		}
		out = append(out, *contactEntry(&rows[i], u.Profile()))
	}
	return out, nil
}

// Remove deletes the owner's contact row by its id.
func (s *ContactService) Remove(ctx context.Context, ownerID, contactRowID uint) error {
	n, err := repo.DeleteContact(ctx, s.DB, ownerID, contactRowID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Block adds blockedID to the owner's block list.
func (s *ContactService) Block(ctx context.Context, ownerID, blockedID uint) (*domain.Block, error) {
	if ownerID == blockedID {
		return nil, ErrNotAuthorized
	}
	if _, err := repo.GetUser(ctx, s.DB, blockedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := repo.GetBlockByPair(ctx, s.DB, ownerID, blockedID); err == nil {
		return nil, ErrAlreadyBlocked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return repo.CreateBlock(ctx, s.DB, ownerID, blockedID)
}

// Unblock removes blockedID from the owner's block list.
func (s *ContactService) Unblock(ctx context.Context, ownerID, blockedID uint) error {
	n, err := repo.DeleteBlock(ctx, s.DB, ownerID, blockedID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// ListBlocked returns the owner's block list joined with profiles.
func (s *ContactService) ListBlocked(ctx context.Context, ownerID uint) ([]BlockedEntry, error) {
	rows, err := repo.ListBlocks(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]BlockedEntry, 0, len(rows))
	for i := range rows {
		e := BlockedEntry{
			ID:        rows[i].ID,
			BlockedID: rows[i].BlockedID,
			CreatedAt: rows[i].CreatedAt.Format(timeLayout),
		}
		if u, err := repo.GetUser(ctx, s.DB, rows[i].BlockedID); err == nil {
			e.Username, e.Email, e.Avatar = u.Username, u.Email, u.Avatar
		}
		out = append(out, e)
	}
	return out, nil
}

// IsBlocked reports whether ownerID has blocked otherID.
func (s *ContactService) IsBlocked(ctx context.Context, ownerID, otherID uint) (bool, error) {
	_, err := repo.GetBlockByPair(ctx, s.DB, ownerID, otherID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// timeLayout matches the ISO-8601 shape the web client already parses.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// clip truncates an alias to the configured maximum rune length.
func (s *ContactService) clip(name string) string {
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

// contactEntry joins a contact row with the target's profile.
func contactEntry(c *domain.Contact, p *domain.Profile) *ContactEntry {
	return &ContactEntry{
		ID:        c.ID,
		ContactID: c.ContactID,
		Name:      c.Name,
		Username:  p.Username,
		Email:     p.Email,
		Avatar:    p.Avatar,
		CreatedAt: c.CreatedAt.Format(timeLayout),
	}
}

// normalizeName trims whitespace and collapses runs of it to single spaces.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
