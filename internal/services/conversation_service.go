// Package services – ConversationService
//
// This file implements ConversationService, the component that owns the
// message lifecycle between two identities: sending (store-and-forward
// persistence), read receipts, edits, the two deletion variants, unread
// aggregation, and transcript retrieval with profile snapshots joined at
// read time.
//
// Live fan-out is not done here: the websocket hub calls these methods,
// persists first through them, and then decides delivery from presence.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// actor and message identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crazychat/chat-backend/internal/domain"
	"github.com/crazychat/chat-backend/internal/repo"
)

// ConversationService coordinates message persistence and per-pair state
// transitions (read, edited, deleted).
type ConversationService struct {
	DB *gorm.DB

	// MaxBodyRunes caps message bodies; 0 disables the cap.
	MaxBodyRunes int

	// HistoryLimit is the default transcript page size when the caller
	// passes limit <= 0.
	HistoryLimit int
}

// NewConversationService constructs a ConversationService with defaults
// matching the transport limits.
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{
		DB:           db,
		MaxBodyRunes: 4096,
		HistoryLimit: 50,
	}
}

// DeleteResult reports which deletion variant was applied to a message.
// CounterpartID is the other participant relative to the actor, so callers
// can fan out notifications without trusting client-supplied routing.
type DeleteResult struct {
	MessageID     uint `json:"messageId"`
	ForEveryone   bool `json:"deleteForEveryone"`
	CounterpartID uint `json:"-"`
}

// HistoryEntry is a transcript message annotated with profile snapshots of
// both parties, joined at query time (never stored denormalized).
type HistoryEntry struct {
	domain.Message
	SenderUsername   string `json:"sender_username,omitempty"`
	SenderAvatar     string `json:"sender_avatar,omitempty"`
	ReceiverUsername string `json:"receiver_username,omitempty"`
	ReceiverAvatar   string `json:"receiver_avatar,omitempty"`
}

// ChatEntry is one inbox row: the counterpart plus the latest exchanged
// message and the unread badge count.
type ChatEntry struct {
	UserID          uint   `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	LastMessage     string `json:"last_message"`
	LastMessageTime string `json:"last_message_time"`
	IsSent          bool   `json:"is_sent"`
	UnreadCount     int64  `json:"unread_count"`
}

// Send validates and persists a message from sender to receiver. Persistence
// always happens regardless of receiver presence (store-and-forward); the
// caller decides live delivery afterwards.
func (s *ConversationService) Send(ctx context.Context, senderID, receiverID uint, body string) (*domain.Message, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.Int64("sender.id", int64(senderID)), attribute.Int64("receiver.id", int64(receiverID))))
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrValidation)
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, fmt.Errorf("%w: message too long", ErrValidation)
	}
	if _, err := repo.GetUser(ctx, s.DB, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return repo.CreateMessage(ctx, s.DB, senderID, receiverID, body)
}

// Edit replaces the body of a message. Only the original sender may edit, and
// a message deleted for everyone stays a tombstone forever.
func (s *ConversationService) Edit(ctx context.Context, actorID, messageID uint, newBody string) (*domain.Message, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Edit",
		trace.WithAttributes(attribute.Int64("actor.id", int64(actorID)), attribute.Int64("message.id", int64(messageID))))
	defer span.End()

	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrValidation)
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(newBody) > s.MaxBodyRunes {
		return nil, fmt.Errorf("%w: message too long", ErrValidation)
	}

	m, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != actorID {
		return nil, ErrNotAuthorized
	}
	if m.Deleted {
		return nil, ErrMessageDeleted
	}

	if err := repo.UpdateMessageBody(ctx, s.DB, messageID, newBody); err != nil {
		return nil, err
	}
	return repo.GetMessage(ctx, s.DB, messageID)
}

// Delete terminates a message one of two ways.
//
// forEveryone=true: only the original sender may do this; the shared row is
// kept with Deleted=true and the body replaced by the tombstone placeholder,
// visible to both parties from then on.
//
// forEveryone=false ("for me"): either participant may do this; the shared
// row is removed outright. With a single row per message this also removes
// the counterpart's view, the known limitation of the shared-row model.
func (s *ConversationService) Delete(ctx context.Context, actorID, messageID uint, forEveryone bool) (*DeleteResult, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("actor.id", int64(actorID)), attribute.Int64("message.id", int64(messageID)),
			attribute.Bool("for_everyone", forEveryone)))
	defer span.End()

	m, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	counterpart := m.ReceiverID
	if m.ReceiverID == actorID {
		counterpart = m.SenderID
	}

	if forEveryone {
		if m.SenderID != actorID {
			return nil, ErrNotAuthorized
		}
		if m.Deleted {
			return nil, ErrMessageDeleted
		}
		if err := repo.TombstoneMessage(ctx, s.DB, messageID); err != nil {
			return nil, err
		}
	} else {
		if m.SenderID != actorID && m.ReceiverID != actorID {
			return nil, ErrNotAuthorized
		}
		if err := repo.HardDeleteMessage(ctx, s.DB, messageID); err != nil {
			return nil, err
		}
	}
	return &DeleteResult{MessageID: messageID, ForEveryone: forEveryone, CounterpartID: counterpart}, nil
}

// MarkRead flips the read flag on every unread message counterpart→reader and
// returns how many were newly marked. Repeated calls are no-ops.
func (s *ConversationService) MarkRead(ctx context.Context, readerID, counterpartID uint) (int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.Int64("reader.id", int64(readerID)), attribute.Int64("counterpart.id", int64(counterpartID))))
	defer span.End()

	return repo.MarkMessagesRead(ctx, s.DB, counterpartID, readerID)
}

// UnreadCounts returns the reader's unread message totals grouped by sender,
// for inbox badges.
func (s *ConversationService) UnreadCounts(ctx context.Context, readerID uint) ([]repo.UnreadCount, error) {
	return repo.CountUnreadBySender(ctx, s.DB, readerID)
}

// History returns the transcript between two users, chronological ascending,
// at most limit entries (service default when limit <= 0), annotated with
// profile snapshots of both parties.
func (s *ConversationService) History(ctx context.Context, userA, userB uint, limit int) ([]HistoryEntry, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(attribute.Int64("user.a", int64(userA)), attribute.Int64("user.b", int64(userB))))
	defer span.End()

	if limit <= 0 {
		limit = s.HistoryLimit
	}
	msgs, err := repo.ListMessagesBetween(ctx, s.DB, userA, userB, limit)
	if err != nil {
		return nil, err
	}

	profiles := map[uint]*domain.Profile{}
	out := make([]HistoryEntry, 0, len(msgs))
	for i := range msgs {
		e := HistoryEntry{Message: msgs[i]}
		if p := s.profileCached(ctx, profiles, msgs[i].SenderID); p != nil {
			e.SenderUsername, e.SenderAvatar = p.Username, p.Avatar
		}
		if p := s.profileCached(ctx, profiles, msgs[i].ReceiverID); p != nil {
			e.ReceiverUsername, e.ReceiverAvatar = p.Username, p.Avatar
		}
		out = append(out, e)
	}
	return out, nil
}

// ChatList folds the user's messages into one inbox entry per counterpart,
// newest conversation first, each with the unread badge count.
func (s *ConversationService) ChatList(ctx context.Context, userID uint) ([]ChatEntry, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ChatList", trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	msgs, err := repo.ListMessagesInvolving(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	// Messages arrive newest-first, so the first one seen per counterpart is
	// the latest of that conversation.
	last := map[uint]*domain.Message{}
	order := []uint{}
	for i := range msgs {
		other := msgs[i].SenderID
		if other == userID {
			other = msgs[i].ReceiverID
		}
		if _, seen := last[other]; !seen {
			last[other] = &msgs[i]
			order = append(order, other)
		}
	}

	profiles := map[uint]*domain.Profile{}
	out := make([]ChatEntry, 0, len(order))
	for _, other := range order {
		p := s.profileCached(ctx, profiles, other)
		if p == nil {
			continue // account vanished; skip the stale conversation
		}
		unread, err := repo.CountUnreadFromSender(ctx, s.DB, other, userID)
		if err != nil {
			return nil, err
		}
		m := last[other]
		out = append(out, ChatEntry{
			UserID:          p.ID,
			Username:        p.Username,
			Email:           p.Email,
			Avatar:          p.Avatar,
			LastMessage:     m.Body,
			LastMessageTime: m.CreatedAt.Format(timeLayout),
			IsSent:          m.SenderID == userID,
			UnreadCount:     unread,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return last[out[i].UserID].CreatedAt.After(last[out[j].UserID].CreatedAt)
	})
	return out, nil
}

// getMessage wraps repo.GetMessage with the service error taxonomy.
func (s *ConversationService) getMessage(ctx context.Context, id uint) (*domain.Message, error) {
	m, err := repo.GetMessage(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

// profileCached resolves a profile with a per-call cache so transcript
// enrichment does at most one lookup per participant.
func (s *ConversationService) profileCached(ctx context.Context, cache map[uint]*domain.Profile, id uint) *domain.Profile {
	if p, ok := cache[id]; ok {
		return p
	}
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		cache[id] = nil
		return nil
	}
	p := u.Profile()
	cache[id] = p
	return p
}
