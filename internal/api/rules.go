package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
)

// ruleRequest is the POST and PUT body for an access rule.
// Times accept "HH:MM" or "HH:MM:SS".
type ruleRequest struct {
	RoomID   int64             `json:"room_id" validate:"required,gt=0"`
	RoleID   int64             `json:"role_id" validate:"required,gt=0"`
	TimeFrom *access.TimeOfDay `json:"time_from" validate:"required"`
	TimeTo   *access.TimeOfDay `json:"time_to" validate:"required"`
}

type patchRuleRequest struct {
	RoomID   *int64            `json:"room_id" validate:"omitempty,gt=0"`
	RoleID   *int64            `json:"role_id" validate:"omitempty,gt=0"`
	TimeFrom *access.TimeOfDay `json:"time_from"`
	TimeTo   *access.TimeOfDay `json:"time_to"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rules, err := s.rules.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_rules", rules, p)
}

// handleCreateRule grants a role access to a room. A second rule for the
// same (room, role) pair is rejected with 409.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	rule := &access.Rule{
		RoomID:   req.RoomID,
		RoleID:   req.RoleID,
		TimeFrom: *req.TimeFrom,
		TimeTo:   *req.TimeTo,
	}
	if err := s.rules.Create(r.Context(), rule); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityRule, rule.ID, 0, map[string]any{
		"room_id":   rule.RoomID,
		"role_id":   rule.RoleID,
		"time_from": rule.TimeFrom.String(),
		"time_to":   rule.TimeTo.String(),
	})
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rule, err := s.rules.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleReplaceRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRule(w, r, access.RulePatch{
		RoomID:   &req.RoomID,
		RoleID:   &req.RoleID,
		TimeFrom: req.TimeFrom,
		TimeTo:   req.TimeTo,
	})
}

func (s *Server) handlePatchRule(w http.ResponseWriter, r *http.Request) {
	var req patchRuleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRule(w, r, access.RulePatch{
		RoomID:   req.RoomID,
		RoleID:   req.RoleID,
		TimeFrom: req.TimeFrom,
		TimeTo:   req.TimeTo,
	})
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request, patch access.RulePatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rule, err := s.rules.Update(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityRule, id, 0, map[string]any{
		"room_id": rule.RoomID,
		"role_id": rule.RoleID,
	})
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.rules.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityRule, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}
