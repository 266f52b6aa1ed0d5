package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/auth"
)

// ─── Request Types ─────────────────────────────────────────────────

type signupRequest struct {
	FirstName string `json:"first_name" validate:"required,min=3,max=32"`
	LastName  string `json:"last_name" validate:"required,min=3,max=32"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=64"`
}

// replaceUserRequest is the PUT body. Privilege flags stay optional so
// non-admins can replace their own profile.
type replaceUserRequest struct {
	FirstName string `json:"first_name" validate:"required,min=3,max=32"`
	LastName  string `json:"last_name" validate:"required,min=3,max=32"`
	Email     string `json:"email" validate:"required,email"`
	IsActive  *bool  `json:"is_active"`
	IsAdmin   *bool  `json:"is_admin"`
}

func (req replaceUserRequest) patch() auth.UserPatch {
	return auth.UserPatch{
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		Email:     &req.Email,
		IsActive:  req.IsActive,
		IsAdmin:   req.IsAdmin,
	}
}

type patchUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=3,max=32"`
	LastName  *string `json:"last_name" validate:"omitempty,min=3,max=32"`
	Email     *string `json:"email" validate:"omitempty,email"`
	IsActive  *bool   `json:"is_active"`
	IsAdmin   *bool   `json:"is_admin"`
}

func (req patchUserRequest) patch() auth.UserPatch {
	return auth.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		IsActive:  req.IsActive,
		IsAdmin:   req.IsAdmin,
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=64"`
}

type setRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,dive,gt=0"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleSignup registers a new active, non-admin user. No authentication.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeAppError(w, r, apperr.Internal(err))
		return
	}

	user := &auth.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityUser, user.ID, user.ID, map[string]any{"email": user.Email})
	writeJSON(w, http.StatusCreated, user)
}

// handleListUsers returns a page of users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	users, err := s.users.List(r.Context(), p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "users", users, p)
}

// handleGetUser returns a single user.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleReplaceUser handles PUT /users/{id}.
func (s *Server) handleReplaceUser(w http.ResponseWriter, r *http.Request) {
	var req replaceUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateUser(w, r, req.patch())
}

// handlePatchUser handles PATCH /users/{id}.
func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	var req patchUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	s.updateUser(w, r, req.patch())
}

// updateUser applies patch to the user in the path. Callers may edit
// themselves; admins may edit anyone. Only admins may change is_active or is_admin.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, patch auth.UserPatch) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	caller := currentUser(r.Context())
	if caller.ID != id && !caller.IsAdmin {
		s.writeAppError(w, r, apperr.Forbidden("Not enough permissions"))
		return
	}
	if patch.ChangesPrivileges() && !caller.IsAdmin {
		s.writeAppError(w, r, apperr.Forbidden("Only admins can change is_active or is_admin"))
		return
	}

	user, err := s.users.Update(r.Context(), id, patch)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, map[string]any{
		"privileges_changed": patch.ChangesPrivileges(),
	})
	writeJSON(w, http.StatusOK, user)
}

// handleChangePassword handles PUT /users/{id}/password.
// Users changing their own password must supply the current one.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var req changePasswordRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	caller := currentUser(r.Context())
	switch {
	case caller.ID == id:
		if !auth.VerifyPassword(req.CurrentPassword, caller.PasswordHash) {
			s.writeAppError(w, r, apperr.Validation("current_password is incorrect"))
			return
		}
	case !caller.IsAdmin:
		s.writeAppError(w, r, apperr.Forbidden("Not enough permissions"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.writeAppError(w, r, apperr.Internal(err))
		return
	}
	if err := s.users.UpdatePassword(r.Context(), id, hash); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, map[string]any{"field": "password"})
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteUser removes a user. Admin only.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityUser, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleListUserRoles returns the roles assigned to a user.
func (s *Server) handleListUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingUserID(w, r)
	if !ok {
		return
	}
	roles, err := s.roles.ListByUser(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "roles", roles, page{Limit: len(roles)})
}

// handleSetUserRoles replaces a user's role assignments. Admin only.
func (s *Server) handleSetUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var req setRolesRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.users.SetRoles(r.Context(), id, req.RoleIDs); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	roles, err := s.roles.ListByUser(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, map[string]any{"role_ids": req.RoleIDs})
	writeList(w, "roles", roles, page{Limit: len(roles)})
}

// handleListUserAccessLogs returns a page of a user's access log entries.
func (s *Server) handleListUserAccessLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingUserID(w, r)
	if !ok {
		return
	}
	p, err := parsePage(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	entries, err := s.logs.ListByUser(r.Context(), id, p.Offset, p.Limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeList(w, "access_logs", entries, p)
}

// handleGetUserPresence returns the room a user is currently in.
func (s *Server) handleGetUserPresence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingUserID(w, r)
	if !ok {
		return
	}
	p, err := s.presence.GetByUser(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// existingUserID parses the {id} parameter and checks the user exists,
// so relational reads report a missing user rather than an empty list.
func (s *Server) existingUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeAppError(w, r, err)
		return 0, false
	}
	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return 0, false
	}
	return id, true
}
