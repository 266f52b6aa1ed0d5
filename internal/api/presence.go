package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/presence"
)

type enterRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	RoomID int64 `json:"room_id" validate:"required,gt=0"`
}

type patchPresenceRequest struct {
	UserID *int64 `json:"user_id" validate:"omitempty,gt=0"`
	RoomID *int64 `json:"room_id" validate:"omitempty,gt=0"`
}

// handleListPresence returns current presence, optionally filtered by ?room_id.
func (s *Server) handleListPresence(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("room_id"); raw != "" {
		roomID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || roomID <= 0 {
			s.writeAppError(w, r, apperr.Validation("room_id must be a positive integer"))
			return
		}
		present, err := s.presence.ListByRoom(r.Context(), roomID, p.Offset, p.Limit)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeList(w, "current_presence", present, p)
		return
	}

	present, err := s.presence.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "current_presence", present, p)
}

func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, err := s.presence.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleEnter records a user entering a room. A user who is already
// present anywhere yields 409 current_presence_already_exists.
func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	p, err := s.presence.Enter(r.Context(), req.UserID, req.RoomID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionCreate, entityPresence, p.ID, 0, map[string]any{
		"user_id": p.UserID,
		"room_id": p.RoomID,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleReplacePresence(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updatePresence(w, r, presence.Patch{UserID: &req.UserID, RoomID: &req.RoomID})
}

func (s *Server) handlePatchPresence(w http.ResponseWriter, r *http.Request) {
	var req patchPresenceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updatePresence(w, r, presence.Patch{UserID: req.UserID, RoomID: req.RoomID})
}

// updatePresence moves an existing presence record.
func (s *Server) updatePresence(w http.ResponseWriter, r *http.Request, patch presence.Patch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, err := s.presence.Update(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityPresence, p.ID, 0, map[string]any{
		"user_id": p.UserID,
		"room_id": p.RoomID,
	})
	writeJSON(w, http.StatusOK, p)
}

// handleExit removes a presence record by ID.
func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.presence.Exit(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityPresence, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleExitUser removes a user's presence wherever they are.
func (s *Server) handleExitUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.presence.ExitUser(r.Context(), userID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityPresence, 0, 0, map[string]any{"user_id": userID})
	w.WriteHeader(http.StatusNoContent)
}
