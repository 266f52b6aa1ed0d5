package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
)

// accessLogRequest is the POST and PUT body for an access log entry.
// The timestamp is always set by the server.
type accessLogRequest struct {
	UserID        int64  `json:"user_id" validate:"required,gt=0"`
	RoomID        int64  `json:"room_id" validate:"required,gt=0"`
	Action        string `json:"action" validate:"required,oneof=enter exit"`
	AccessAllowed *bool  `json:"access_allowed" validate:"required"`
}

type patchAccessLogRequest struct {
	UserID        *int64  `json:"user_id" validate:"omitempty,gt=0"`
	RoomID        *int64  `json:"room_id" validate:"omitempty,gt=0"`
	Action        *string `json:"action" validate:"omitempty,oneof=enter exit"`
	AccessAllowed *bool   `json:"access_allowed"`
}

func (s *Server) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	entries, err := s.logs.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_logs", entries, p)
}

// handleCreateAccessLog records an enter or exit event and publishes it.
func (s *Server) handleCreateAccessLog(w http.ResponseWriter, r *http.Request) {
	var req accessLogRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	entry := &access.LogEntry{
		UserID:        req.UserID,
		RoomID:        req.RoomID,
		Action:        access.Action(req.Action),
		AccessAllowed: *req.AccessAllowed,
	}
	if err := s.recorder.Record(r.Context(), entry); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetAccessLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	entry, err := s.logs.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleReplaceAccessLog(w http.ResponseWriter, r *http.Request) {
	var req accessLogRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	action := access.Action(req.Action)
	s.updateAccessLog(w, r, access.LogPatch{
		UserID:        &req.UserID,
		RoomID:        &req.RoomID,
		Action:        &action,
		AccessAllowed: req.AccessAllowed,
	})
}

func (s *Server) handlePatchAccessLog(w http.ResponseWriter, r *http.Request) {
	var req patchAccessLogRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	patch := access.LogPatch{
		UserID:        req.UserID,
		RoomID:        req.RoomID,
		AccessAllowed: req.AccessAllowed,
	}
	if req.Action != nil {
		action := access.Action(*req.Action)
		patch.Action = &action
	}
	s.updateAccessLog(w, r, patch)
}

// updateAccessLog corrects an existing entry. Corrections are audited but
// not republished as new events.
func (s *Server) updateAccessLog(w http.ResponseWriter, r *http.Request, patch access.LogPatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	entry, err := s.logs.Update(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityAccessLog, id, 0, nil)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteAccessLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.logs.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityAccessLog, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}
