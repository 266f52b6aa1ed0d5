package auth

import (
	"log/slog"
	"testing"
)

func TestSeedAdmin_GeneratesPasswordOnEmptyDB(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()

	password, err := SeedAdmin(ctx, repo, "admin@example.com", "", slog.Default())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password == "" {
		t.Fatal("SeedAdmin() should return the generated password")
	}

	admin, err := repo.GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if !admin.IsAdmin || !admin.IsActive {
		t.Errorf("seed admin flags = active:%v admin:%v", admin.IsActive, admin.IsAdmin)
	}
	if !VerifyPassword(password, admin.PasswordHash) {
		t.Error("generated password should verify against stored hash")
	}
}

func TestSeedAdmin_UsesConfiguredPassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	password, err := SeedAdmin(t.Context(), repo, "admin@example.com", "configured-secret", slog.Default())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password != "configured-secret" {
		t.Errorf("password = %q, want configured", password)
	}
}

func TestSeedAdmin_SkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	seedTestUser(t, db, "existing@example.com", false)

	password, err := SeedAdmin(t.Context(), repo, "admin@example.com", "", slog.Default())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password != "" {
		t.Error("SeedAdmin() should skip when users exist")
	}

	count, err := repo.Count(t.Context())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}
