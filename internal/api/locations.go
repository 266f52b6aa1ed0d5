package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/location"
)

// ─── Request Types ─────────────────────────────────────────────────

type buildingRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=32"`
	Address     string `json:"address" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1024"`
}

type patchBuildingRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=32"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

type floorRequest struct {
	FloorNumber *int  `json:"floor_number" validate:"required"`
	BuildingID  int64 `json:"building_id" validate:"required,gt=0"`
}

type patchFloorRequest struct {
	FloorNumber *int   `json:"floor_number"`
	BuildingID  *int64 `json:"building_id" validate:"omitempty,gt=0"`
}

type roomRequest struct {
	FloorID int64  `json:"floor_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,min=3,max=32"`
}

type patchRoomRequest struct {
	FloorID *int64  `json:"floor_id" validate:"omitempty,gt=0"`
	Name    *string `json:"name" validate:"omitempty,min=3,max=32"`
}

// ─── Buildings ─────────────────────────────────────────────────────

func (s *Server) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	buildings, err := s.locations.ListBuildings(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "buildings", buildings, p)
}

func (s *Server) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	b := &location.Building{Name: req.Name, Address: req.Address, Description: req.Description}
	if err := b.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.CreateBuilding(r.Context(), b); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityBuilding, b.ID, 0, map[string]any{"name": b.Name})
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBuilding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := s.locations.GetBuilding(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleReplaceBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateBuilding(w, r, location.BuildingPatch{
		Name:        &req.Name,
		Address:     &req.Address,
		Description: &req.Description,
	})
}

func (s *Server) handlePatchBuilding(w http.ResponseWriter, r *http.Request) {
	var req patchBuildingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateBuilding(w, r, location.BuildingPatch{
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
	})
}

func (s *Server) updateBuilding(w http.ResponseWriter, r *http.Request, patch location.BuildingPatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := s.locations.UpdateBuilding(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityBuilding, id, 0, nil)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.DeleteBuilding(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityBuilding, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListBuildingFloors returns the floors of a building.
func (s *Server) handleListBuildingFloors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if _, err := s.locations.GetBuilding(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	floors, err := s.locations.ListFloorsByBuilding(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "floors", floors, p)
}

// ─── Floors ────────────────────────────────────────────────────────

func (s *Server) handleListFloors(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	floors, err := s.locations.ListFloors(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "floors", floors, p)
}

func (s *Server) handleCreateFloor(w http.ResponseWriter, r *http.Request) {
	var req floorRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	f := &location.Floor{FloorNumber: *req.FloorNumber, BuildingID: req.BuildingID}
	if err := f.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.CreateFloor(r.Context(), f); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityFloor, f.ID, 0, map[string]any{
		"building_id":  f.BuildingID,
		"floor_number": f.FloorNumber,
	})
	writeJSON(w, http.StatusCreated, f)
}

// handleGetFloor returns a floor. ?include=building embeds its building.
func (s *Server) handleGetFloor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if r.URL.Query().Get("include") == "building" {
		f, err := s.locations.GetFloorWithBuilding(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
		return
	}

	f, err := s.locations.GetFloor(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleReplaceFloor(w http.ResponseWriter, r *http.Request) {
	var req floorRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateFloor(w, r, location.FloorPatch{
		FloorNumber: req.FloorNumber,
		BuildingID:  &req.BuildingID,
	})
}

func (s *Server) handlePatchFloor(w http.ResponseWriter, r *http.Request) {
	var req patchFloorRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateFloor(w, r, location.FloorPatch{
		FloorNumber: req.FloorNumber,
		BuildingID:  req.BuildingID,
	})
}

func (s *Server) updateFloor(w http.ResponseWriter, r *http.Request, patch location.FloorPatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	f, err := s.locations.UpdateFloor(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityFloor, id, 0, nil)
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFloor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.DeleteFloor(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityFloor, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListFloorRooms returns the rooms on a floor.
func (s *Server) handleListFloorRooms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if _, err := s.locations.GetFloor(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rooms, err := s.locations.ListRoomsByFloor(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "rooms", rooms, p)
}

// ─── Rooms ─────────────────────────────────────────────────────────

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rooms, err := s.locations.ListRooms(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "rooms", rooms, p)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	room := &location.Room{FloorID: req.FloorID, Name: req.Name}
	if err := room.Validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.CreateRoom(r.Context(), room); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityRoom, room.ID, 0, map[string]any{
		"name":     room.Name,
		"floor_id": room.FloorID,
	})
	writeJSON(w, http.StatusCreated, room)
}

// handleGetRoom returns a room. ?include=floor embeds its floor.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if r.URL.Query().Get("include") == "floor" {
		room, err := s.locations.GetRoomWithFloor(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
		return
	}

	room, err := s.locations.GetRoom(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleReplaceRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRoom(w, r, location.RoomPatch{FloorID: &req.FloorID, Name: &req.Name})
}

func (s *Server) handlePatchRoom(w http.ResponseWriter, r *http.Request) {
	var req patchRoomRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRoom(w, r, location.RoomPatch{FloorID: req.FloorID, Name: req.Name})
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request, patch location.RoomPatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	room, err := s.locations.UpdateRoom(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityRoom, id, 0, nil)
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.locations.DeleteRoom(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityRoom, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// existingRoomID parses the {id} parameter and checks the room exists.
func (s *Server) existingRoomID(w http.ResponseWriter, r *http.Request) (int64, page, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return 0, page{}, false
	}
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return 0, page{}, false
	}
	if _, err := s.locations.GetRoom(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return 0, page{}, false
	}
	return id, p, true
}

// handleListRoomRules returns the access rules for a room.
func (s *Server) handleListRoomRules(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.existingRoomID(w, r)
	if !ok {
		return
	}
	rules, err := s.rules.ListByRoom(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_rules", rules, p)
}

// handleListRoomAccessLogs returns a page of a room's access log entries.
func (s *Server) handleListRoomAccessLogs(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.existingRoomID(w, r)
	if !ok {
		return
	}
	entries, err := s.logs.ListByRoom(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_logs", entries, p)
}

// handleListRoomPresence returns the users currently in a room.
func (s *Server) handleListRoomPresence(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.existingRoomID(w, r)
	if !ok {
		return
	}
	present, err := s.presence.ListByRoom(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "current_presence", present, p)
}
