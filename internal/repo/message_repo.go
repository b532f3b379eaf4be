// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/domain"
)

// CreateMessage inserts a new message row with Read=false.
func CreateMessage(ctx context.Context, db *gorm.DB, senderID, receiverID uint, body string) (*domain.Message, error) {
	m := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMessageBody replaces the body of a message and marks it edited.
// Authorization and tombstone checks belong to the service layer.
func UpdateMessageBody(ctx context.Context, db *gorm.DB, id uint, body string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"body":      body,
			"edited":    true,
			"edited_at": &now,
		}).Error
}

// TombstoneMessage marks a message deleted "for everyone": the row stays, the
// body becomes the fixed tombstone placeholder. Irreversible.
func TombstoneMessage(ctx context.Context, db *gorm.DB, id uint) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"body":       domain.TombstoneBody,
			"deleted":    true,
			"deleted_at": &now,
		}).Error
}

// HardDeleteMessage removes the message row entirely ("delete for me" on the
// shared-row model).
func HardDeleteMessage(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Message{}).Error
}

// ListMessagesBetween returns the most recent messages exchanged between the
// two users, in chronological ascending order (CreatedAt ASC, ID ASC). A
// limit <= 0 returns the full transcript.
func ListMessagesBetween(ctx context.Context, db *gorm.DB, userA, userB uint, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	// Fetched newest-first to apply the limit; flip to transcript order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListMessagesInvolving returns every message sent or received by the user,
// newest first. Used to fold the per-counterpart chat list.
func ListMessagesInvolving(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// MarkMessagesRead flips Read on every unread message sender→receiver and
// returns how many rows changed. Calling it again is a no-op (returns 0).
func MarkMessagesRead(ctx context.Context, db *gorm.DB, senderID, receiverID uint) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", senderID, receiverID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount is one row of the unread-per-sender aggregation.
type UnreadCount struct {
	SenderID uint  `json:"sender_id"`
	Count    int64 `json:"count"`
}

// CountUnreadBySender groups the receiver's unread messages by sender.
func CountUnreadBySender(ctx context.Context, db *gorm.DB, receiverID uint) ([]UnreadCount, error) {
	var out []UnreadCount
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Group("sender_id").
		Scan(&out).Error
	return out, err
}

// CountUnreadFromSender counts unread messages from one specific sender.
func CountUnreadFromSender(ctx context.Context, db *gorm.DB, senderID, receiverID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", senderID, receiverID, false).
		Count(&total).Error
	return total, err
}
