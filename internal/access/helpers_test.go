package access

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-access/migrations" // registers the schema
)

// setupTestDB creates a migrated temporary database with two users, two
// roles (staff, security) and two rooms.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "access-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	seed := `
		INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at) VALUES
			(1, 'Ada', 'Lovelace', 'ada@example.com', 'x', '2026-03-01T09:00:00Z', '2026-03-01T09:00:00Z'),
			(2, 'Alan', 'Turing', 'alan@example.com', 'x', '2026-03-01T09:00:00Z', '2026-03-01T09:00:00Z');

		INSERT INTO roles (id, name, description) VALUES
			(1, 'staff', 'All employees'),
			(2, 'security', 'Guards');

		INSERT INTO user_roles (user_id, role_id) VALUES (1, 1), (1, 2), (2, 1);

		INSERT INTO buildings (id, name, address) VALUES (1, 'HQ', '1 Main Street');
		INSERT INTO floors (id, floor_number, building_id) VALUES (1, 0, 1);
		INSERT INTO rooms (id, floor_id, name) VALUES (1, 1, 'Lobby'), (2, 1, 'Vault');
	`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return db.DB
}

func ptr[T any](v T) *T { return &v }
