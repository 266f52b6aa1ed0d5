package presence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/events"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-access/migrations" // registers the schema
)

// setupTestDB creates a migrated database with users 1-2 and rooms 1-2.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "presence-test.db"),
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
		INSERT INTO buildings (id, name, address) VALUES (1, 'HQ', '1 Main Street');
		INSERT INTO floors (id, floor_number, building_id) VALUES (1, 0, 1);
		INSERT INTO rooms (id, floor_id, name) VALUES (1, 1, 'Lobby'), (2, 1, 'Vault');
	`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return db.DB
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturePublisher) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func TestEnter(t *testing.T) {
	pub := &capturePublisher{}
	engine := NewEngine(setupTestDB(t), pub)
	ctx := t.Context()

	p, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if p.ID == 0 || p.UserID != 1 || p.RoomID != 1 || p.Timestamp.IsZero() {
		t.Errorf("got %+v", p)
	}

	got, err := engine.GetByUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.ID != p.ID || got.RoomID != 1 {
		t.Errorf("GetByUser = %+v", got)
	}

	if types := pub.types(); len(types) != 1 || types[0] != events.TypePresenceEntered {
		t.Errorf("published %v", types)
	}
}

func TestEnterSecondRoomAlreadyExists(t *testing.T) {
	pub := &capturePublisher{}
	engine := NewEngine(setupTestDB(t), pub)
	ctx := t.Context()

	if _, err := engine.Enter(ctx, 1, 1); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	_, err := engine.Enter(ctx, 1, 2)
	if !errors.Is(err, apperr.ErrCurrentPresenceAlreadyExists) {
		t.Fatalf("Enter() error = %v, want CurrentPresenceAlreadyExists", err)
	}
	if e, _ := apperr.As(err); e.HTTPStatus() != 409 {
		t.Errorf("status = %d, want 409", e.HTTPStatus())
	}

	// The original presence is untouched and no event was published for the failure.
	got, err := engine.GetByUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.RoomID != 1 {
		t.Errorf("RoomID = %d, want 1", got.RoomID)
	}
	if n := len(pub.types()); n != 1 {
		t.Errorf("published %d events, want 1", n)
	}
}

func TestEnterSameRoomTwice(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	if _, err := engine.Enter(ctx, 1, 1); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	// SQLite reports the user_id index for a repeated pair.
	_, err := engine.Enter(ctx, 1, 1)
	if !errors.Is(err, apperr.ErrCurrentPresenceAlreadyExists) {
		t.Fatalf("Enter() error = %v, want CurrentPresenceAlreadyExists", err)
	}
	if e, _ := apperr.As(err); e.ResponseCode() != "current_presence_already_exists" {
		t.Errorf("code = %q", e.ResponseCode())
	}
}

func TestUpdateMovesUser(t *testing.T) {
	pub := &capturePublisher{}
	engine := NewEngine(setupTestDB(t), pub)
	ctx := t.Context()

	p, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	vault := int64(2)
	moved, err := engine.Update(ctx, p.ID, Patch{RoomID: &vault})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if moved.ID != p.ID || moved.UserID != 1 || moved.RoomID != 2 {
		t.Errorf("Update() = %+v", moved)
	}

	got, err := engine.GetByUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.RoomID != 2 {
		t.Errorf("stored RoomID = %d, want 2", got.RoomID)
	}

	want := []events.Type{events.TypePresenceEntered, events.TypePresenceExited, events.TypePresenceEntered}
	types := pub.types()
	if len(types) != len(want) {
		t.Fatalf("published %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
	if pub.events[1].RoomID != 1 || pub.events[2].RoomID != 2 {
		t.Errorf("exit room = %d, entry room = %d", pub.events[1].RoomID, pub.events[2].RoomID)
	}
}

func TestUpdateUnchangedPublishesNothing(t *testing.T) {
	pub := &capturePublisher{}
	engine := NewEngine(setupTestDB(t), pub)
	ctx := t.Context()

	p, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	same, err := engine.Update(ctx, p.ID, Patch{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if same.RoomID != 1 || !same.Timestamp.Equal(p.Timestamp) {
		t.Errorf("Update() = %+v, want unchanged %+v", same, p)
	}
	if n := len(pub.types()); n != 1 {
		t.Errorf("published %d events, want 1", n)
	}
}

func TestUpdateErrors(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	ada, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if _, err := engine.Enter(ctx, 2, 2); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	alan, missingRoom := int64(2), int64(99)
	tests := []struct {
		name  string
		id    int64
		patch Patch
		want  error
	}{
		{"unknown record", 42, Patch{RoomID: &missingRoom}, apperr.ErrNotFound},
		{"missing room", ada.ID, Patch{RoomID: &missingRoom}, apperr.ErrUpdateFailed},
		{"user already present", ada.ID, Patch{UserID: &alan}, apperr.ErrCurrentPresenceAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Update(ctx, tt.id, tt.patch); !errors.Is(err, tt.want) {
				t.Errorf("Update() error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := engine.Get(ctx, ada.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 1 || got.RoomID != 1 {
		t.Errorf("failed updates changed the record: %+v", got)
	}
}

func TestEnterExitEnter(t *testing.T) {
	pub := &capturePublisher{}
	engine := NewEngine(setupTestDB(t), pub)
	ctx := t.Context()

	first, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := engine.Exit(ctx, first.ID); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if _, err := engine.Enter(ctx, 1, 2); err != nil {
		t.Fatalf("Enter after exit: %v", err)
	}

	want := []events.Type{events.TypePresenceEntered, events.TypePresenceExited, events.TypePresenceEntered}
	got := pub.types()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEnterMissingRoom(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)

	_, err := engine.Enter(t.Context(), 1, 99)
	if !errors.Is(err, apperr.ErrCreateFailed) {
		t.Errorf("Enter() error = %v, want CreateFailed", err)
	}
}

func TestEnterConcurrent(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, room := range []int64{1, 2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Enter(ctx, 2, room)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, apperr.ErrCurrentPresenceAlreadyExists):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d concurrent enters succeeded, want 1", succeeded)
	}
}

func TestExitNotFound(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	if err := engine.Exit(ctx, 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Exit() error = %v, want NotFound", err)
	}
	if err := engine.ExitUser(ctx, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ExitUser() error = %v, want NotFound", err)
	}
}

func TestExitUser(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	if _, err := engine.Enter(ctx, 2, 2); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := engine.ExitUser(ctx, 2); err != nil {
		t.Fatalf("ExitUser: %v", err)
	}
	if _, err := engine.GetByUser(ctx, 2); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByUser() after exit error = %v, want NotFound", err)
	}
}

func TestListByRoom(t *testing.T) {
	engine := NewEngine(setupTestDB(t), nil)
	ctx := t.Context()

	for _, pair := range [][2]int64{{1, 1}, {2, 1}} {
		if _, err := engine.Enter(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("Enter: %v", err)
		}
	}

	lobby, err := engine.ListByRoom(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if len(lobby) != 2 {
		t.Errorf("lobby has %d users, want 2", len(lobby))
	}

	vault, err := engine.ListByRoom(ctx, 2, 0, 100)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if vault == nil || len(vault) != 0 {
		t.Errorf("vault = %#v, want empty slice", vault)
	}

	all, err := engine.List(ctx, 1, 100)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List offset 1 returned %d", len(all))
	}
}

func TestUserDeleteRemovesPresence(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine(db, nil)
	ctx := t.Context()

	p, err := engine.Enter(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = 1"); err != nil {
		t.Fatalf("deleting user: %v", err)
	}
	if _, err := engine.Get(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("presence should cascade with its user, got %v", err)
	}
}

func TestClassifyViolation(t *testing.T) {
	tests := []struct {
		name string
		v    database.ConstraintViolation
		want error
	}{
		{
			name: "user only",
			v:    database.ConstraintViolation{Kind: database.ConstraintUnique, Table: "current_presence", Columns: []string{"user_id"}},
			want: apperr.ErrCurrentPresenceAlreadyExists,
		},
		{
			name: "room and user",
			v:    database.ConstraintViolation{Kind: database.ConstraintUnique, Table: "current_presence", Columns: []string{"room_id", "user_id"}},
			want: apperr.ErrCurrentPresenceConflict,
		},
		{
			name: "foreign key",
			v:    database.ConstraintViolation{Kind: database.ConstraintForeignKey},
			want: nil,
		},
		{
			name: "other unique",
			v:    database.ConstraintViolation{Kind: database.ConstraintUnique, Columns: []string{"id"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyViolation(&tt.v, 5, 6)
			if tt.want == nil {
				if got != nil {
					t.Errorf("classifyViolation() = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
