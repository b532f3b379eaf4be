package repo

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/domain"
)

func TestCreateUser_AndLookups(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "alice", "alice@example.com", "hash", "https://avatar/alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 || u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	byID, err := GetUser(ctx, db, u.ID)
	if err != nil || byID.Username != "alice" {
		t.Fatalf("GetUser: %+v %v", byID, err)
	}

	byName, err := GetUserByUsername(ctx, db, "alice")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("GetUserByUsername: %+v %v", byName, err)
	}

	byEmail, err := GetUserByEmail(ctx, db, "alice@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail: %+v %v", byEmail, err)
	}

	if _, err := GetUserByUsername(ctx, db, "nobody"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound for unknown username, got %v", err)
	}
}

func TestCreateUser_UniqueConstraints(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "alice", "alice@example.com", "h", "a"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateUser(ctx, db, "alice", "other@example.com", "h", "a"); err == nil {
		t.Fatalf("duplicate username must fail")
	}
	if _, err := CreateUser(ctx, db, "alice2", "alice@example.com", "h", "a"); err == nil {
		t.Fatalf("duplicate email must fail")
	}
}

func TestListUsers_SortedByUsername(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := CreateUser(ctx, db, name, name+"@example.com", "h", "a"); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	users, err := ListUsers(ctx, db)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 || users[0].Username != "alice" || users[1].Username != "bob" || users[2].Username != "carol" {
		t.Fatalf("unexpected order: %+v", users)
	}
}
