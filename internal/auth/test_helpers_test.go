package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-access/migrations" // registers the schema
)

const testPassword = "test-password"

// testDB creates a temporary SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

// seedTestUser inserts an active user with testPassword and returns it.
func seedTestUser(t *testing.T, db *sql.DB, email string, admin bool) *User {
	t.Helper()

	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      admin,
	}
	if err := NewUserRepository(db).Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// seedTestRole inserts a role directly and returns its ID.
func seedTestRole(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()

	result, err := db.ExecContext(t.Context(), "INSERT INTO roles (name, description) VALUES (?, '')", name)
	if err != nil {
		t.Fatalf("creating test role %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("reading role id: %v", err)
	}
	return id
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// testRSAKey returns a 2048-bit key shared by the package's tests.
func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

// testTokenService returns a signing token service with default lifetimes.
func testTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testRSAKey(t), nil, TokenConfig{Issuer: "gray-logic-access-test"})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}
