package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crazychat/chat-backend/internal/domain"
)

// test DB helper
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// seedUsers inserts n users and returns their ids.
func seedUsers(t *testing.T, db *gorm.DB, n int) []uint {
	t.Helper()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		u := &domain.User{
			Username:     fmt.Sprintf("user%d", i+1),
			Email:        fmt.Sprintf("user%d@example.com", i+1),
			PasswordHash: "x",
			Avatar:       "a",
		}
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func TestCreateMessage_DefaultsUnread(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	m, err := CreateMessage(ctx, db, ids[0], ids[1], "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == 0 || m.SenderID != ids[0] || m.ReceiverID != ids[1] || m.Body != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Read || m.Edited || m.Deleted {
		t.Fatalf("new message must be unread and pristine: %+v", m)
	}
	if m.CreatedAt.IsZero() || time.Since(m.CreatedAt) > time.Minute {
		t.Fatalf("created_at not set: %+v", m)
	}
}

func TestUpdateMessageBody_MarksEdited(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	m, _ := CreateMessage(ctx, db, ids[0], ids[1], "first")
	if err := UpdateMessageBody(ctx, db, m.ID, "second"); err != nil {
		t.Fatalf("UpdateMessageBody: %v", err)
	}

	got, err := GetMessage(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Body != "second" || !got.Edited || got.EditedAt == nil {
		t.Fatalf("edit not persisted: %+v", got)
	}
}

func TestTombstoneMessage_ReplacesBodyAndFlags(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	m, _ := CreateMessage(ctx, db, ids[0], ids[1], "secret")
	if err := TombstoneMessage(ctx, db, m.ID); err != nil {
		t.Fatalf("TombstoneMessage: %v", err)
	}

	got, _ := GetMessage(ctx, db, m.ID)
	if got.Body != domain.TombstoneBody || !got.Deleted || got.DeletedAt == nil {
		t.Fatalf("tombstone not applied: %+v", got)
	}
}

func TestHardDeleteMessage_RemovesRow(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	m, _ := CreateMessage(ctx, db, ids[0], ids[1], "gone soon")
	if err := HardDeleteMessage(ctx, db, m.ID); err != nil {
		t.Fatalf("HardDeleteMessage: %v", err)
	}
	if _, err := GetMessage(ctx, db, m.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListMessagesBetween_OrderAndLimit(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 3)
	ctx := context.Background()

	// Interleave both directions plus an unrelated pair.
	m1, _ := CreateMessage(ctx, db, ids[0], ids[1], "one")
	m2, _ := CreateMessage(ctx, db, ids[1], ids[0], "two")
	m3, _ := CreateMessage(ctx, db, ids[0], ids[1], "three")
	_, _ = CreateMessage(ctx, db, ids[0], ids[2], "noise")

	got, err := ListMessagesBetween(ctx, db, ids[0], ids[1], 0)
	if err != nil {
		t.Fatalf("ListMessagesBetween: %v", err)
	}
	if len(got) != 3 || got[0].ID != m1.ID || got[1].ID != m2.ID || got[2].ID != m3.ID {
		t.Fatalf("transcript order wrong: %+v", got)
	}

	// Limit keeps the most recent, still in ascending order.
	got, err = ListMessagesBetween(ctx, db, ids[0], ids[1], 2)
	if err != nil {
		t.Fatalf("ListMessagesBetween limited: %v", err)
	}
	if len(got) != 2 || got[0].ID != m2.ID || got[1].ID != m3.ID {
		t.Fatalf("limited transcript wrong: %+v", got)
	}
}

func TestMarkMessagesRead_CountsAndIsIdempotent(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	_, _ = CreateMessage(ctx, db, ids[0], ids[1], "a")
	_, _ = CreateMessage(ctx, db, ids[0], ids[1], "b")
	_, _ = CreateMessage(ctx, db, ids[1], ids[0], "reverse direction")

	n, err := MarkMessagesRead(ctx, db, ids[0], ids[1])
	if err != nil || n != 2 {
		t.Fatalf("MarkMessagesRead = (%d, %v), want (2, nil)", n, err)
	}

	// Second pass flips nothing.
	n, err = MarkMessagesRead(ctx, db, ids[0], ids[1])
	if err != nil || n != 0 {
		t.Fatalf("repeat MarkMessagesRead = (%d, %v), want (0, nil)", n, err)
	}

	// The opposite direction stays unread.
	unread, err := CountUnreadFromSender(ctx, db, ids[1], ids[0])
	if err != nil || unread != 1 {
		t.Fatalf("CountUnreadFromSender = (%d, %v), want (1, nil)", unread, err)
	}
}

func TestCountUnreadBySender_Groups(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Message{})
	ids := seedUsers(t, db, 3)
	ctx := context.Background()

	_, _ = CreateMessage(ctx, db, ids[1], ids[0], "from 2")
	_, _ = CreateMessage(ctx, db, ids[1], ids[0], "from 2 again")
	_, _ = CreateMessage(ctx, db, ids[2], ids[0], "from 3")

	counts, err := CountUnreadBySender(ctx, db, ids[0])
	if err != nil {
		t.Fatalf("CountUnreadBySender: %v", err)
	}
	bySender := map[uint]int64{}
	for _, c := range counts {
		bySender[c.SenderID] = c.Count
	}
	if bySender[ids[1]] != 2 || bySender[ids[2]] != 1 {
		t.Fatalf("unexpected counts: %v", bySender)
	}
}
