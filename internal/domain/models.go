// Package domain defines the persistence models for users, contacts, blocks,
// and messages. These types are mapped with GORM and form the core data layer
// of the chat application.
package domain

import (
	"fmt"
	"net/url"
	"time"
)

// TombstoneBody is the fixed placeholder substituted for the body of a message
// deleted "for everyone". Both parties see this text afterwards.
const TombstoneBody = "Diese Nachricht wurde gelöscht"

// User represents a registered account. Usernames and emails are unique;
// emails are stored case-folded. The password hash never leaves the server.
//
// Fields:
//   - ID: auto-increment numeric identity, immutable once created.
//   - Username: unique handle (>= 3 runes, enforced at the service layer).
//   - Email: unique, case-folded.
//   - PasswordHash: bcrypt hash; excluded from JSON.
//   - Avatar: deterministic avatar URL derived from the username.
//   - CreatedAt: timestamp managed by GORM.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(128);not null"`
	Avatar       string    `json:"avatar"     gorm:"type:varchar(512);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Profile is the public projection of a User, safe to hand to any client.
type Profile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// AvatarURL builds the deterministic avatar reference for a username.
func AvatarURL(username string) string {
	return fmt.Sprintf(
		"https://ui-avatars.com/api/?name=%s&background=random&color=fff&size=50",
		url.QueryEscape(username),
	)
}

// Contact is a directional address-book entry: owner keeps target under a
// local alias. At most one row per (owner, contact) pair; a contact A→B does
// not imply B→A.
type Contact struct {
	ID        uint      `json:"id"           gorm:"primaryKey"`
	OwnerID   uint      `json:"user_id"      gorm:"not null;uniqueIndex:ux_contacts_owner_contact,priority:1;index"`
	ContactID uint      `json:"contact_id"   gorm:"not null;uniqueIndex:ux_contacts_owner_contact,priority:2"`
	Name      string    `json:"contact_name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`

	// Target is the referenced user; contacts go away with the account.
	Target User `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// Block is a directional block-list entry. At most one row per
// (owner, blocked) pair.
type Block struct {
	ID        uint      `json:"id"              gorm:"primaryKey"`
	OwnerID   uint      `json:"user_id"         gorm:"not null;uniqueIndex:ux_blocks_owner_blocked,priority:1;index"`
	BlockedID uint      `json:"blocked_user_id" gorm:"not null;uniqueIndex:ux_blocks_owner_blocked,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Blocked User `json:"-" gorm:"foreignKey:BlockedID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Block.
func (Block) TableName() string { return "blocked" }

// Message is a single two-party message. The row is shared by both sides of
// the conversation; per-pair ordering follows (CreatedAt, ID) with the
// auto-increment ID as tie-breaker.
//
// Lifecycle:
//   - created by the sender with Read=false;
//   - Read flips false→true once, when the receiver acknowledges;
//   - the body may be replaced by the original sender (Edited=true);
//   - delete "for everyone" keeps the row, sets Deleted=true and swaps the
//     body for TombstoneBody (irreversible);
//   - delete "for me" removes the row entirely. Deleted here is an explicit
//     tombstone flag, not a GORM soft-delete marker.
type Message struct {
	ID         uint       `json:"id"          gorm:"primaryKey"`
	SenderID   uint       `json:"sender_id"   gorm:"not null;index:idx_messages_pair,priority:1"`
	ReceiverID uint       `json:"receiver_id" gorm:"not null;index:idx_messages_pair,priority:2;index:idx_messages_unread"`
	Body       string     `json:"message"     gorm:"type:text;not null"`
	Read       bool       `json:"read"        gorm:"not null;default:false;index:idx_messages_unread"`
	Edited     bool       `json:"edited"      gorm:"not null;default:false"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
	Deleted    bool       `json:"deleted"     gorm:"not null;default:false"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"  gorm:"index"`

	Sender   User `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Receiver User `json:"-" gorm:"foreignKey:ReceiverID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
