// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/domain"
)

// CreateContact inserts a directional contact row owner→contact.
func CreateContact(ctx context.Context, db *gorm.DB, ownerID, contactID uint, name string) (*domain.Contact, error) {
	c := &domain.Contact{
		OwnerID:   ownerID,
		ContactID: contactID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetContactByPair fetches the contact row for (owner, contact), if any.
func GetContactByPair(ctx context.Context, db *gorm.DB, ownerID, contactID uint) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("owner_id = ? AND contact_id = ?", ownerID, contactID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns all contacts owned by ownerID, oldest first.
func ListContacts(ctx context.Context, db *gorm.DB, ownerID uint) ([]domain.Contact, error) {
	var out []domain.Contact
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteContact removes the contact row with the given id, scoped to its
// owner. Returns the number of rows removed (0 when no such contact).
func DeleteContact(ctx context.Context, db *gorm.DB, ownerID, contactRowID uint) (int64, error) {
	res := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, contactRowID).
		Delete(&domain.Contact{})
	return res.RowsAffected, res.Error
}

// CreateBlock inserts a directional block row owner→blocked.
func CreateBlock(ctx context.Context, db *gorm.DB, ownerID, blockedID uint) (*domain.Block, error) {
	b := &domain.Block{
		OwnerID:   ownerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// GetBlockByPair fetches the block row for (owner, blocked), if any.
func GetBlockByPair(ctx context.Context, db *gorm.DB, ownerID, blockedID uint) (*domain.Block, error) {
	var b domain.Block
	err := db.WithContext(ctx).
		Where("owner_id = ? AND blocked_id = ?", ownerID, blockedID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBlocks returns all block rows owned by ownerID, oldest first.
func ListBlocks(ctx context.Context, db *gorm.DB, ownerID uint) ([]domain.Block, error) {
	var out []domain.Block
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteBlock removes the block row for (owner, blocked). Returns the number
// of rows removed (0 when no such block).
func DeleteBlock(ctx context.Context, db *gorm.DB, ownerID, blockedID uint) (int64, error) {
	res := db.WithContext(ctx).
		Where("owner_id = ? AND blocked_id = ?", ownerID, blockedID).
		Delete(&domain.Block{})
	return res.RowsAffected, res.Error
}
