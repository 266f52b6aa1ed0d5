package location

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-access/migrations" // registers the schema
)

// setupTestDB creates a temporary database with the full schema and one
// building, two floors and three rooms.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "location-test.db"),
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
		INSERT INTO buildings (id, name, address, description) VALUES
			(1, 'HQ', '1 Main Street', 'Head office');

		INSERT INTO floors (id, floor_number, building_id) VALUES
			(1, 0, 1),
			(2, 1, 1);

		INSERT INTO rooms (id, floor_id, name) VALUES
			(1, 1, 'Lobby'),
			(2, 1, 'Canteen'),
			(3, 2, 'Server Room');
	`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return db.DB
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func idPtr(i int64) *int64    { return &i }

func TestCreateBuilding(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	b := &Building{Name: "Annex", Address: "2 Main Street"}
	if err := repo.CreateBuilding(ctx, b); err != nil {
		t.Fatalf("CreateBuilding: %v", err)
	}
	if b.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := repo.GetBuilding(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBuilding: %v", err)
	}
	if got.Name != "Annex" || got.Address != "2 Main Street" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateBuildingDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	tests := []struct {
		name     string
		building Building
		detail   string
	}{
		{"duplicate name", Building{Name: "HQ", Address: "9 Side Road"}, "Building with name=HQ already exists"},
		{"duplicate address", Building{Name: "Other", Address: "1 Main Street"}, "Building with address=1 Main Street already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.building
			err := repo.CreateBuilding(ctx, &b)
			if !errors.Is(err, apperr.ErrBuildingAlreadyExists) {
				t.Fatalf("CreateBuilding() error = %v, want BuildingAlreadyExists", err)
			}
			e, _ := apperr.As(err)
			if e.Detail != tt.detail {
				t.Errorf("Detail = %q, want %q", e.Detail, tt.detail)
			}
		})
	}
}

func TestGetBuildingNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetBuilding(t.Context(), 99)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetBuilding() error = %v, want NotFound", err)
	}
}

func TestUpdateBuildingPartial(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	updated, err := repo.UpdateBuilding(ctx, 1, BuildingPatch{Description: strPtr("Renovated")})
	if err != nil {
		t.Fatalf("UpdateBuilding: %v", err)
	}
	if updated.Description != "Renovated" {
		t.Errorf("Description = %q", updated.Description)
	}
	if updated.Name != "HQ" || updated.Address != "1 Main Street" {
		t.Errorf("unpatched fields changed: %+v", updated)
	}
}

func TestUpdateBuildingConflict(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	other := &Building{Name: "Annex", Address: "2 Main Street"}
	if err := repo.CreateBuilding(ctx, other); err != nil {
		t.Fatalf("CreateBuilding: %v", err)
	}

	_, err := repo.UpdateBuilding(ctx, other.ID, BuildingPatch{Name: strPtr("HQ")})
	if !errors.Is(err, apperr.ErrBuildingAlreadyExists) {
		t.Errorf("UpdateBuilding() error = %v, want BuildingAlreadyExists", err)
	}

	got, err := repo.GetBuilding(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetBuilding: %v", err)
	}
	if got.Name != "Annex" {
		t.Errorf("failed update leaked: name = %q", got.Name)
	}
}

func TestDeleteBuildingCascades(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	if err := repo.DeleteBuilding(ctx, 1); err != nil {
		t.Fatalf("DeleteBuilding: %v", err)
	}

	if _, err := repo.GetFloor(ctx, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("floor should cascade, got %v", err)
	}
	rooms, err := repo.ListRooms(ctx, 0, 100)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected rooms to cascade, got %d", len(rooms))
	}

	if err := repo.DeleteBuilding(ctx, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete error = %v, want NotFound", err)
	}
}

func TestListBuildingsPaging(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	for _, name := range []string{"B", "C"} {
		if err := repo.CreateBuilding(ctx, &Building{Name: name, Address: name + " Road"}); err != nil {
			t.Fatalf("CreateBuilding: %v", err)
		}
	}

	page, err := repo.ListBuildings(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListBuildings: %v", err)
	}
	if len(page) != 1 || page[0].Name != "B" {
		t.Errorf("page = %+v, want [B]", page)
	}

	empty, err := repo.ListBuildings(ctx, 10, 10)
	if err != nil {
		t.Fatalf("ListBuildings: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestCreateFloor(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	f := &Floor{FloorNumber: 2, BuildingID: 1}
	if err := repo.CreateFloor(ctx, f); err != nil {
		t.Fatalf("CreateFloor: %v", err)
	}

	fb, err := repo.GetFloorWithBuilding(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFloorWithBuilding: %v", err)
	}
	if fb.FloorNumber != 2 || fb.Building.Name != "HQ" {
		t.Errorf("got %+v", fb)
	}
}

func TestCreateFloorDuplicateNumber(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.CreateFloor(t.Context(), &Floor{FloorNumber: 1, BuildingID: 1})
	if !errors.Is(err, apperr.ErrFloorAlreadyExists) {
		t.Errorf("CreateFloor() error = %v, want FloorAlreadyExists", err)
	}
}

func TestCreateFloorMissingBuilding(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.CreateFloor(t.Context(), &Floor{FloorNumber: 0, BuildingID: 42})
	if !errors.Is(err, apperr.ErrCreateFailed) {
		t.Errorf("CreateFloor() error = %v, want CreateFailed", err)
	}
}

func TestListFloorsByBuilding(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	floors, err := repo.ListFloorsByBuilding(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListFloorsByBuilding: %v", err)
	}
	if len(floors) != 2 || floors[0].FloorNumber != 0 || floors[1].FloorNumber != 1 {
		t.Errorf("floors = %+v", floors)
	}

	if _, err := repo.ListFloorsByBuilding(ctx, 99, 0, 100); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown building error = %v, want NotFound", err)
	}
}

func TestUpdateFloor(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	f, err := repo.UpdateFloor(ctx, 2, FloorPatch{FloorNumber: intPtr(5)})
	if err != nil {
		t.Fatalf("UpdateFloor: %v", err)
	}
	if f.FloorNumber != 5 || f.BuildingID != 1 {
		t.Errorf("got %+v", f)
	}

	if _, err := repo.UpdateFloor(ctx, 2, FloorPatch{FloorNumber: intPtr(0)}); !errors.Is(err, apperr.ErrFloorAlreadyExists) {
		t.Errorf("UpdateFloor() error = %v, want FloorAlreadyExists", err)
	}
	if _, err := repo.UpdateFloor(ctx, 99, FloorPatch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateFloor(99) error = %v, want NotFound", err)
	}
}

func TestRoomLifecycle(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	room := &Room{FloorID: 2, Name: "Boardroom"}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	rf, err := repo.GetRoomWithFloor(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoomWithFloor: %v", err)
	}
	if rf.Name != "Boardroom" || rf.Floor.FloorNumber != 1 {
		t.Errorf("got %+v", rf)
	}

	moved, err := repo.UpdateRoom(ctx, room.ID, RoomPatch{FloorID: idPtr(1)})
	if err != nil {
		t.Fatalf("UpdateRoom: %v", err)
	}
	if moved.FloorID != 1 || moved.Name != "Boardroom" {
		t.Errorf("got %+v", moved)
	}

	if err := repo.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if _, err := repo.GetRoom(ctx, room.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetRoom() after delete error = %v, want NotFound", err)
	}
}

func TestCreateRoomDuplicateName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	err := repo.CreateRoom(ctx, &Room{FloorID: 1, Name: "Lobby"})
	if !errors.Is(err, apperr.ErrRoomAlreadyExists) {
		t.Errorf("CreateRoom() error = %v, want RoomAlreadyExists", err)
	}

	// Same name on another floor is allowed.
	if err := repo.CreateRoom(ctx, &Room{FloorID: 2, Name: "Lobby"}); err != nil {
		t.Errorf("CreateRoom on other floor: %v", err)
	}
}

func TestListRoomsByFloor(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := t.Context()

	rooms, err := repo.ListRoomsByFloor(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListRoomsByFloor: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Canteen" || rooms[1].Name != "Lobby" {
		t.Errorf("rooms = %+v", rooms)
	}

	if _, err := repo.ListRoomsByFloor(ctx, 99, 0, 100); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown floor error = %v, want NotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		check   func() error
		wantErr bool
	}{
		{"valid building", (&Building{Name: "HQ", Address: "1 Main"}).Validate, false},
		{"building empty name", (&Building{Name: " ", Address: "1 Main"}).Validate, true},
		{"building empty address", (&Building{Name: "HQ"}).Validate, true},
		{"valid floor", (&Floor{FloorNumber: -1, BuildingID: 1}).Validate, false},
		{"floor out of range", (&Floor{FloorNumber: 1000, BuildingID: 1}).Validate, true},
		{"floor without building", (&Floor{FloorNumber: 1}).Validate, true},
		{"valid room", (&Room{FloorID: 1, Name: "Lab"}).Validate, false},
		{"room without floor", (&Room{Name: "Lab"}).Validate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Validate() error = %v, want Validation kind", err)
			}
		})
	}
}
