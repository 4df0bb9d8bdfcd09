package db

import (
	"context"
	"testing"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
)

func TestUserRepository_Create(t *testing.T) {
	dbx := setupTestDB(t)

	repo := NewUserRepository(dbx)
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Test",
		Email:        "test_1@example.com",
		PasswordHash: "password",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	// verify user was created
	var count int
	err := dbx.QueryRow("SELECT COUNT(*) FROM users WHERE email = $1", user.Email).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query user: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 user, got %d", count)
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	dbx := setupTestDB(t)
	insertUser(t, dbx, "dup@example.com")

	now := time.Now().UTC()
	err := NewUserRepository(dbx).Create(context.Background(), &models.User{
		ID:           uuid.New(),
		Email:        "dup@example.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_GetByEmailAndID(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewUserRepository(dbx)
	user := insertUser(t, dbx, "lookup@example.com")

	byEmail, err := repo.GetByEmail(context.Background(), "lookup@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.PasswordHash != "hash" {
		t.Errorf("GetByEmail returned %+v", byEmail)
	}

	byID, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Email != user.Email || byID.XP != 0 || byID.Achievements == nil {
		t.Errorf("GetByID returned %+v", byID)
	}

	if _, err := repo.GetByEmail(context.Background(), "missing@example.com"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_AddXP(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewUserRepository(dbx)
	user := insertUser(t, dbx, "xp@example.com")

	total, err := repo.AddXP(context.Background(), user.ID, 15, time.Now().UTC())
	if err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	if total != 15 {
		t.Fatalf("total = %d, want 15", total)
	}
	total, err = repo.AddXP(context.Background(), user.ID, 5, time.Now().UTC())
	if err != nil || total != 20 {
		t.Fatalf("second AddXP = %d, %v; want 20", total, err)
	}

	if _, err := repo.AddXP(context.Background(), uuid.New(), 5, time.Now().UTC()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestUserRepository_TopByXP(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewUserRepository(dbx)
	ctx := context.Background()

	low := insertUser(t, dbx, "low@example.com")
	high := insertUser(t, dbx, "high@example.com")
	mid := insertUser(t, dbx, "mid@example.com")
	for id, xp := range map[uuid.UUID]int{low.ID: 5, high.ID: 50, mid.ID: 20} {
		if _, err := repo.AddXP(ctx, id, xp, time.Now().UTC()); err != nil {
			t.Fatalf("AddXP: %v", err)
		}
	}

	top, err := repo.TopByXP(ctx, 2)
	if err != nil {
		t.Fatalf("TopByXP: %v", err)
	}
	if len(top) != 2 || top[0].ID != high.ID || top[1].ID != mid.ID {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
	if top[0].XP != 50 || top[1].XP != 20 {
		t.Fatalf("unexpected xp values: %+v", top)
	}
}
