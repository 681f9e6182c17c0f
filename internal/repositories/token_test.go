package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func record(userID string) *models.TokenRecord {
	return &models.TokenRecord{
		UserID:       userID,
		AccessToken:  "T1",
		RefreshToken: "R1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestTokenRepository(t *testing.T) {
	t.Run("Save and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)
		saved := record("u1")

		if err := repo.Save(saved); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		got, err := repo.Get("u1")
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}

		if got.AccessToken != "T1" || got.RefreshToken != "R1" {
			t.Errorf("unexpected tokens: %+v", got)
		}

		// Millisecond precision survives the round trip
		if got.ExpiresAt.UnixMilli() != saved.ExpiresAt.UnixMilli() {
			t.Errorf("expected expiry %v, got %v", saved.ExpiresAt, got.ExpiresAt)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)
		_, err := repo.Get("nobody")
		if !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("Save upserts never duplicates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)

		if err := repo.Save(record("u1")); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		updated := record("u1")
		updated.AccessToken = "T2"
		updated.ExpiresAt = time.Now().Add(2 * time.Hour)
		if err := repo.Save(updated); err != nil {
			t.Fatalf("failed to upsert token: %v", err)
		}

		count, err := repo.Count("u1")
		if err != nil {
			t.Fatalf("failed to count tokens: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly 1 row after upsert, got %d", count)
		}

		got, err := repo.Get("u1")
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if got.AccessToken != "T2" {
			t.Errorf("expected replaced access token T2, got %s", got.AccessToken)
		}
	})

	t.Run("Save rejects invalid record", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)
		bad := record("u1")
		bad.RefreshToken = ""

		if err := repo.Save(bad); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)

		if err := repo.Save(record("u1")); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		if err := repo.Delete("u1"); err != nil {
			t.Fatalf("failed to delete token: %v", err)
		}

		if _, err := repo.Get("u1"); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound after delete, got %v", err)
		}

		if err := repo.Delete("u1"); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound for second delete, got %v", err)
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTokenRepository(db)

		if _, err := repo.Latest(); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound for empty table, got %v", err)
		}

		if err := repo.Save(record("u1")); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		if err := repo.Save(record("u2")); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		got, err := repo.Latest()
		if err != nil {
			t.Fatalf("failed to get latest token: %v", err)
		}
		if got.UserID != "u2" {
			t.Errorf("expected latest user u2, got %s", got.UserID)
		}
	})
}
