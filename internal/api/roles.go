package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
)

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=32"`
	Description string `json:"description" validate:"max=255"`
}

type patchRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=32"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	roles, err := s.roles.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "roles", roles, p)
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	role := &access.Role{Name: req.Name, Description: req.Description}
	if err := s.roles.Create(r.Context(), role); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityRole, role.ID, 0, map[string]any{"name": role.Name})
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	role, err := s.roles.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleReplaceRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRole(w, r, access.RolePatch{Name: &req.Name, Description: &req.Description})
}

func (s *Server) handlePatchRole(w http.ResponseWriter, r *http.Request) {
	var req patchRoleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateRole(w, r, access.RolePatch{Name: req.Name, Description: req.Description})
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request, patch access.RolePatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	role, err := s.roles.Update(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionUpdate, entityRole, id, 0, nil)
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.roles.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.auditLog(r, audit.ActionDelete, entityRole, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// existingRoleID parses the {id} parameter and checks the role exists.
func (s *Server) existingRoleID(w http.ResponseWriter, r *http.Request) (int64, page, bool) {
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
	if _, err := s.roles.Get(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return 0, page{}, false
	}
	return id, p, true
}

// handleListRoleUsers returns the users holding a role.
func (s *Server) handleListRoleUsers(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.existingRoleID(w, r)
	if !ok {
		return
	}
	users, err := s.users.ListByRole(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "users", users, p)
}

// handleListRoleRules returns the access rules granted to a role.
func (s *Server) handleListRoleRules(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.existingRoleID(w, r)
	if !ok {
		return
	}
	rules, err := s.rules.ListByRole(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_rules", rules, p)
}
