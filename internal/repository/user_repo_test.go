package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/restaurant-ops/backend/internal/db"
	"github.com/restaurant-ops/backend/internal/model"
)

func newTestRepo(t *testing.T) *UserRepository {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewUserRepository(database)
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	user := &model.User{
		ID:        "u1",
		Name:      "Ada",
		Email:     "ada@example.com",
		Role:      model.StaffRoleChef,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email || got.Role != user.Role {
		t.Errorf("user mismatch: got %+v", got)
	}
	if !got.IsActive {
		t.Error("expected user to be active")
	}
}

func TestUserNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	user := &model.User{
		ID: "u1", Name: "Ada", Email: "ada@example.com",
		Role: model.StaffRoleWaiter, IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.SetActive(ctx, "u1", false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected user to be deactivated")
	}

	if err := repo.SetActive(ctx, "missing", false); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for missing user, got %v", err)
	}
}
