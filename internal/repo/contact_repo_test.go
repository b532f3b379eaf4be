package repo

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/domain"
)

func TestCreateContact_PairUniqueness(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Contact{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	c, err := CreateContact(ctx, db, ids[0], ids[1], "Bobby")
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if c.ID == 0 || c.OwnerID != ids[0] || c.ContactID != ids[1] || c.Name != "Bobby" {
		t.Fatalf("unexpected contact: %+v", c)
	}

	// Same pair again violates the unique index.
	if _, err := CreateContact(ctx, db, ids[0], ids[1], "Robert"); err == nil {
		t.Fatalf("duplicate pair must fail")
	}

	// The reverse direction is a separate row.
	if _, err := CreateContact(ctx, db, ids[1], ids[0], "Alice"); err != nil {
		t.Fatalf("reverse pair should insert: %v", err)
	}
}

func TestGetContactByPair_AndDelete(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Contact{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	c, _ := CreateContact(ctx, db, ids[0], ids[1], "Bobby")

	got, err := GetContactByPair(ctx, db, ids[0], ids[1])
	if err != nil || got.ID != c.ID {
		t.Fatalf("GetContactByPair: %+v %v", got, err)
	}

	// Deleting with the wrong owner touches nothing.
	if n, err := DeleteContact(ctx, db, ids[1], c.ID); err != nil || n != 0 {
		t.Fatalf("foreign delete = (%d, %v), want (0, nil)", n, err)
	}
	if n, err := DeleteContact(ctx, db, ids[0], c.ID); err != nil || n != 1 {
		t.Fatalf("owner delete = (%d, %v), want (1, nil)", n, err)
	}
	if _, err := GetContactByPair(ctx, db, ids[0], ids[1]); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestListContacts_ScopedToOwner(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Contact{})
	ids := seedUsers(t, db, 3)
	ctx := context.Background()

	_, _ = CreateContact(ctx, db, ids[0], ids[1], "b")
	_, _ = CreateContact(ctx, db, ids[0], ids[2], "c")
	_, _ = CreateContact(ctx, db, ids[1], ids[0], "a")

	mine, err := ListContacts(ctx, db, ids[0])
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListContacts = %d rows, err %v; want 2", len(mine), err)
	}
	for _, c := range mine {
		if c.OwnerID != ids[0] {
			t.Fatalf("foreign row leaked: %+v", c)
		}
	}
}

func TestBlocks_CreateListDelete(t *testing.T) {
	db := newRepoDB(t, &domain.User{}, &domain.Block{})
	ids := seedUsers(t, db, 2)
	ctx := context.Background()

	b, err := CreateBlock(ctx, db, ids[0], ids[1])
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if b.OwnerID != ids[0] || b.BlockedID != ids[1] {
		t.Fatalf("unexpected block: %+v", b)
	}
	if _, err := CreateBlock(ctx, db, ids[0], ids[1]); err == nil {
		t.Fatalf("duplicate block must fail")
	}

	got, err := GetBlockByPair(ctx, db, ids[0], ids[1])
	if err != nil || got.ID != b.ID {
		t.Fatalf("GetBlockByPair: %+v %v", got, err)
	}

	blocks, err := ListBlocks(ctx, db, ids[0])
	if err != nil || len(blocks) != 1 {
		t.Fatalf("ListBlocks = %d rows, err %v; want 1", len(blocks), err)
	}

	if n, err := DeleteBlock(ctx, db, ids[0], ids[1]); err != nil || n != 1 {
		t.Fatalf("DeleteBlock = (%d, %v), want (1, nil)", n, err)
	}
	if n, err := DeleteBlock(ctx, db, ids[0], ids[1]); err != nil || n != 0 {
		t.Fatalf("repeat DeleteBlock = (%d, %v), want (0, nil)", n, err)
	}
}
