package store

import (
	"context"
	"testing"
	"time"

	"sklad/internal/db"
	"sklad/internal/model"
)

func farFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	workshop, _ := CreateWorkshop(ctx, database, "Main")

	user, err := CreateUser(ctx, database, "mira", "hash", model.RoleManager, &workshop.ID)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "mira" || user.Role != model.RoleManager {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.WorkshopID == nil || *user.WorkshopID != workshop.ID {
		t.Errorf("expected workshop %s, got %v", workshop.ID, user.WorkshopID)
	}
}

func TestDuplicateUsernameFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil)
	if _, err := CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil); err == nil {
		t.Error("expected error creating duplicate username")
	}
}

func TestUsernameReusableAfterSoftDelete(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil)
	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if _, err := CreateUser(ctx, database, "mira", "hash2", model.RoleUser, nil); err != nil {
		t.Errorf("expected username reusable after soft delete: %v", err)
	}
}

func TestGetUserByUsernameSkipsDeleted(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil)
	DeleteUser(ctx, database, user.ID)

	got, err := GetUserByUsername(ctx, database, "mira")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for deleted user, got %+v", got)
	}
}

func TestListUsersExcludesDeleted(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "mira", "hash", model.RoleAdmin, nil)
	user, _ := CreateUser(ctx, database, "jan", "hash", model.RoleUser, nil)
	DeleteUser(ctx, database, user.ID)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].Username != "mira" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestRefreshTokenSingleUse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil)

	if err := SaveRefreshToken(ctx, database, "jti-1", user.ID, farFuture()); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	ok, err := ConsumeRefreshToken(ctx, database, "jti-1", user.ID)
	if err != nil {
		t.Fatalf("ConsumeRefreshToken: %v", err)
	}
	if !ok {
		t.Fatal("expected first redemption to succeed")
	}

	ok, _ = ConsumeRefreshToken(ctx, database, "jti-1", user.ID)
	if ok {
		t.Error("expected second redemption to fail")
	}
}

func TestRevokeUserTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "mira", "hash", model.RoleUser, nil)
	SaveRefreshToken(ctx, database, "jti-1", user.ID, farFuture())
	SaveRefreshToken(ctx, database, "jti-2", user.ID, farFuture())

	if err := RevokeUserTokens(ctx, database, user.ID); err != nil {
		t.Fatalf("RevokeUserTokens: %v", err)
	}

	ok, _ := ConsumeRefreshToken(ctx, database, "jti-1", user.ID)
	if ok {
		t.Error("expected revoked token to be unusable")
	}
}

func TestGetJWTSecretIsStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	second, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("expected stable secret, got %q and %q", first, second)
	}
}
