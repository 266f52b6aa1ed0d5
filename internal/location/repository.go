package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

const (
	entityBuilding = "Building"
	entityFloor    = "Floor"
	entityRoom     = "Room"
)

// Repository defines the interface for building hierarchy persistence.
type Repository interface {
	CreateBuilding(ctx context.Context, b *Building) error
	GetBuilding(ctx context.Context, id int64) (*Building, error)
	ListBuildings(ctx context.Context, offset, limit int) ([]Building, error)
	UpdateBuilding(ctx context.Context, id int64, patch BuildingPatch) (*Building, error)
	DeleteBuilding(ctx context.Context, id int64) error

	CreateFloor(ctx context.Context, f *Floor) error
	GetFloor(ctx context.Context, id int64) (*Floor, error)
	GetFloorWithBuilding(ctx context.Context, id int64) (*FloorWithBuilding, error)
	ListFloors(ctx context.Context, offset, limit int) ([]Floor, error)
	ListFloorsByBuilding(ctx context.Context, buildingID int64, offset, limit int) ([]Floor, error)
	UpdateFloor(ctx context.Context, id int64, patch FloorPatch) (*Floor, error)
	DeleteFloor(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, id int64) (*Room, error)
	GetRoomWithFloor(ctx context.Context, id int64) (*RoomWithFloor, error)
	ListRooms(ctx context.Context, offset, limit int) ([]Room, error)
	ListRoomsByFloor(ctx context.Context, floorID int64, offset, limit int) ([]Room, error)
	UpdateRoom(ctx context.Context, id int64, patch RoomPatch) (*Room, error)
	DeleteRoom(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Buildings ──────────────────────────────────────────────────────

const buildingColumns = "id, name, address, description"

// CreateBuilding inserts a building and sets its ID.
func (r *SQLiteRepository) CreateBuilding(ctx context.Context, b *Building) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO buildings (name, address, description) VALUES (?, ?, ?)",
			b.Name, b.Address, b.Description)
		if err != nil {
			return classifyBuildingWrite(err, b)
		}
		b.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityBuilding, nil, err)
}

// GetBuilding retrieves a building by ID.
func (r *SQLiteRepository) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	return getBuilding(ctx, r.db, id)
}

// ListBuildings returns a page of buildings ordered by ID.
func (r *SQLiteRepository) ListBuildings(ctx context.Context, offset, limit int) ([]Building, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+buildingColumns+" FROM buildings ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing buildings: %w", err))
	}
	defer rows.Close()

	buildings := []Building{}
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Description); err != nil {
			return nil, apperr.FromRead(err)
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating buildings: %w", err))
	}
	return buildings, nil
}

// UpdateBuilding applies a partial update and returns the stored result.
func (r *SQLiteRepository) UpdateBuilding(ctx context.Context, id int64, patch BuildingPatch) (*Building, error) {
	var updated *Building
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		b, err := getBuilding(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(b)
		if err := b.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE buildings SET name = ?, address = ?, description = ? WHERE id = ?",
			b.Name, b.Address, b.Description, id); err != nil {
			return classifyBuildingWrite(err, b)
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityBuilding, id, err)
	}
	return updated, nil
}

// DeleteBuilding removes a building together with its floors and rooms.
func (r *SQLiteRepository) DeleteBuilding(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "buildings", entityBuilding, id)
}

// ─── Floors ─────────────────────────────────────────────────────────

const floorColumns = "id, floor_number, building_id"

// CreateFloor inserts a floor and sets its ID.
// A missing building fails the insert with CreateFailed.
func (r *SQLiteRepository) CreateFloor(ctx context.Context, f *Floor) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO floors (floor_number, building_id) VALUES (?, ?)", f.FloorNumber, f.BuildingID)
		if err != nil {
			return classifyFloorWrite(err, f)
		}
		f.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityFloor, nil, err)
}

// GetFloor retrieves a floor by ID.
func (r *SQLiteRepository) GetFloor(ctx context.Context, id int64) (*Floor, error) {
	return getFloor(ctx, r.db, id)
}

// GetFloorWithBuilding retrieves a floor and its building in one query.
func (r *SQLiteRepository) GetFloorWithBuilding(ctx context.Context, id int64) (*FloorWithBuilding, error) {
	var fb FloorWithBuilding
	err := r.db.QueryRowContext(ctx,
		`SELECT f.id, f.floor_number, f.building_id, b.id, b.name, b.address, b.description
		 FROM floors f JOIN buildings b ON b.id = f.building_id WHERE f.id = ?`, id,
	).Scan(&fb.ID, &fb.FloorNumber, &fb.BuildingID,
		&fb.Building.ID, &fb.Building.Name, &fb.Building.Address, &fb.Building.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityFloor, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &fb, nil
}

// ListFloors returns a page of floors ordered by ID.
func (r *SQLiteRepository) ListFloors(ctx context.Context, offset, limit int) ([]Floor, error) {
	return r.queryFloors(ctx,
		"SELECT "+floorColumns+" FROM floors ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListFloorsByBuilding returns a page of a building's floors ordered by floor number.
func (r *SQLiteRepository) ListFloorsByBuilding(ctx context.Context, buildingID int64, offset, limit int) ([]Floor, error) {
	if _, err := r.GetBuilding(ctx, buildingID); err != nil {
		return nil, err
	}
	return r.queryFloors(ctx,
		"SELECT "+floorColumns+" FROM floors WHERE building_id = ? ORDER BY floor_number, id LIMIT ? OFFSET ?",
		buildingID, limit, offset)
}

// UpdateFloor applies a partial update and returns the stored result.
func (r *SQLiteRepository) UpdateFloor(ctx context.Context, id int64, patch FloorPatch) (*Floor, error) {
	var updated *Floor
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		f, err := getFloor(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(f)
		if err := f.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE floors SET floor_number = ?, building_id = ? WHERE id = ?",
			f.FloorNumber, f.BuildingID, id); err != nil {
			return classifyFloorWrite(err, f)
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityFloor, id, err)
	}
	return updated, nil
}

// DeleteFloor removes a floor together with its rooms.
func (r *SQLiteRepository) DeleteFloor(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "floors", entityFloor, id)
}

// ─── Rooms ──────────────────────────────────────────────────────────

const roomColumns = "id, floor_id, name"

// CreateRoom inserts a room and sets its ID.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO rooms (floor_id, name) VALUES (?, ?)", room.FloorID, room.Name)
		if err != nil {
			return classifyRoomWrite(err, room)
		}
		room.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityRoom, nil, err)
}

// GetRoom retrieves a room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id int64) (*Room, error) {
	return getRoom(ctx, r.db, id)
}

// GetRoomWithFloor retrieves a room and its floor in one query.
func (r *SQLiteRepository) GetRoomWithFloor(ctx context.Context, id int64) (*RoomWithFloor, error) {
	var rf RoomWithFloor
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.floor_id, r.name, f.id, f.floor_number, f.building_id
		 FROM rooms r JOIN floors f ON f.id = r.floor_id WHERE r.id = ?`, id,
	).Scan(&rf.ID, &rf.FloorID, &rf.Name, &rf.Floor.ID, &rf.Floor.FloorNumber, &rf.Floor.BuildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityRoom, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &rf, nil
}

// ListRooms returns a page of rooms ordered by ID.
func (r *SQLiteRepository) ListRooms(ctx context.Context, offset, limit int) ([]Room, error) {
	return r.queryRooms(ctx,
		"SELECT "+roomColumns+" FROM rooms ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListRoomsByFloor returns a page of a floor's rooms ordered by name.
func (r *SQLiteRepository) ListRoomsByFloor(ctx context.Context, floorID int64, offset, limit int) ([]Room, error) {
	if _, err := r.GetFloor(ctx, floorID); err != nil {
		return nil, err
	}
	return r.queryRooms(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE floor_id = ? ORDER BY name, id LIMIT ? OFFSET ?",
		floorID, limit, offset)
}

// UpdateRoom applies a partial update and returns the stored result.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, id int64, patch RoomPatch) (*Room, error) {
	var updated *Room
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		room, err := getRoom(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(room)
		if err := room.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE rooms SET floor_id = ?, name = ? WHERE id = ?", room.FloorID, room.Name, id); err != nil {
			return classifyRoomWrite(err, room)
		}
		updated = room
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityRoom, id, err)
	}
	return updated, nil
}

// DeleteRoom removes a room with its access rules, logs and presence.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "rooms", entityRoom, id)
}

// ─── Helpers ────────────────────────────────────────────────────────

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, entity string, id int64) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		if n == 0 {
			return apperr.NotFound(entity, id)
		}
		return nil
	})
	return apperr.FromWrite(apperr.OpDelete, entity, id, err)
}

func (r *SQLiteRepository) queryFloors(ctx context.Context, query string, args ...any) ([]Floor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing floors: %w", err))
	}
	defer rows.Close()

	floors := []Floor{}
	for rows.Next() {
		var f Floor
		if err := rows.Scan(&f.ID, &f.FloorNumber, &f.BuildingID); err != nil {
			return nil, apperr.FromRead(err)
		}
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating floors: %w", err))
	}
	return floors, nil
}

func (r *SQLiteRepository) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing rooms: %w", err))
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.FloorID, &room.Name); err != nil {
			return nil, apperr.FromRead(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating rooms: %w", err))
	}
	return rooms, nil
}

func getBuilding(ctx context.Context, q database.Querier, id int64) (*Building, error) {
	var b Building
	err := q.QueryRowContext(ctx, "SELECT "+buildingColumns+" FROM buildings WHERE id = ?", id).
		Scan(&b.ID, &b.Name, &b.Address, &b.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityBuilding, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &b, nil
}

func getFloor(ctx context.Context, q database.Querier, id int64) (*Floor, error) {
	var f Floor
	err := q.QueryRowContext(ctx, "SELECT "+floorColumns+" FROM floors WHERE id = ?", id).
		Scan(&f.ID, &f.FloorNumber, &f.BuildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityFloor, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &f, nil
}

func getRoom(ctx context.Context, q database.Querier, id int64) (*Room, error) {
	var room Room
	err := q.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id).
		Scan(&room.ID, &room.FloorID, &room.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityRoom, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return &room, nil
}

// classifyBuildingWrite maps the name and address unique indexes to BuildingAlreadyExists.
func classifyBuildingWrite(err error, b *Building) error {
	v, ok := database.AsConstraintViolation(err)
	if !ok || v.Kind != database.ConstraintUnique {
		return err
	}
	switch {
	case v.Covers("name"):
		return apperr.AlreadyExists(apperr.CodeBuildingExists, entityBuilding, "name", b.Name)
	case v.Covers("address"):
		return apperr.AlreadyExists(apperr.CodeBuildingExists, entityBuilding, "address", b.Address)
	}
	return err
}

func classifyFloorWrite(err error, f *Floor) error {
	if v, ok := database.AsConstraintViolation(err); ok && v.Kind == database.ConstraintUnique &&
		v.Covers("building_id", "floor_number") {
		return &apperr.Error{
			Kind: apperr.KindAlreadyExists,
			Code: apperr.CodeFloorExists,
			Detail: fmt.Sprintf("%s with building_id=%d and floor_number=%d already exists",
				entityFloor, f.BuildingID, f.FloorNumber),
		}
	}
	return err
}

func classifyRoomWrite(err error, room *Room) error {
	if v, ok := database.AsConstraintViolation(err); ok && v.Kind == database.ConstraintUnique &&
		v.Covers("floor_id", "name") {
		return &apperr.Error{
			Kind: apperr.KindAlreadyExists,
			Code: apperr.CodeRoomExists,
			Detail: fmt.Sprintf("%s with floor_id=%d and name=%s already exists",
				entityRoom, room.FloorID, room.Name),
		}
	}
	return err
}
