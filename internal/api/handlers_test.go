package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/auth"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/location"
	"github.com/nerrad567/gray-logic-access/internal/presence"
)

// fixture holds IDs created through the API by seedModel.
type fixture struct {
	buildingID int64
	floorID    int64
	roomA      int64
	roomB      int64
	roleID     int64
}

// seedModel creates a building, a floor, two rooms and a role as admin.
func seedModel(t *testing.T, env *testEnv) fixture {
	t.Helper()
	var f fixture

	w := env.do(t, http.MethodPost, "/buildings/", env.adminToken, map[string]any{
		"name": "Head Office", "address": "1 Main Street",
	})
	expectStatus(t, w, http.StatusCreated)
	f.buildingID = decode[location.Building](t, w).ID

	w = env.do(t, http.MethodPost, "/floors/", env.adminToken, map[string]any{
		"floor_number": 0, "building_id": f.buildingID,
	})
	expectStatus(t, w, http.StatusCreated)
	f.floorID = decode[location.Floor](t, w).ID

	for i, name := range []string{"Lobby", "Server Room"} {
		w = env.do(t, http.MethodPost, "/rooms/", env.adminToken, map[string]any{
			"name": name, "floor_id": f.floorID,
		})
		expectStatus(t, w, http.StatusCreated)
		id := decode[location.Room](t, w).ID
		if i == 0 {
			f.roomA = id
		} else {
			f.roomB = id
		}
	}

	w = env.do(t, http.MethodPost, "/roles/", env.adminToken, map[string]any{
		"name": "staff", "description": "All employees",
	})
	expectStatus(t, w, http.StatusCreated)
	f.roleID = decode[access.Role](t, w).ID
	return f
}

// ─── Authorisation ─────────────────────────────────────────────────

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/rooms/", map[string]any{"name": "Vault", "floor_id": f.floorID}},
		{http.MethodGet, "/rooms/", nil},
		{http.MethodGet, fmt.Sprintf("/rooms/%d", f.roomA), nil},
		{http.MethodGet, "/access_rule/", nil},
		{http.MethodPost, "/buildings/", map[string]any{"name": "Annex", "address": "2 Main Street"}},
		{http.MethodDelete, fmt.Sprintf("/floors/%d", f.floorID), nil},
		{http.MethodPatch, fmt.Sprintf("/roles/%d", f.roleID), map[string]any{"name": "renamed"}},
		{http.MethodDelete, fmt.Sprintf("/users/%d", env.admin.ID), nil},
		{http.MethodGet, "/audit", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, env.memberToken, tt.body)
			expectError(t, w, http.StatusForbidden, "forbidden")
		})
	}
}

func TestMemberCanReadModel(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	for _, path := range []string{
		"/buildings/",
		fmt.Sprintf("/buildings/%d/floors", f.buildingID),
		fmt.Sprintf("/floors/%d/rooms", f.floorID),
		"/roles/",
		fmt.Sprintf("/roles/%d/users", f.roleID),
		"/users/",
		"/access_log/",
		"/current_presence/",
	} {
		w := env.do(t, http.MethodGet, path, env.memberToken, nil)
		expectStatus(t, w, http.StatusOK)
	}
}

// ─── Locations ─────────────────────────────────────────────────────

func TestLocationReads(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/floors/%d?include=building", f.floorID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	fwb := decode[location.FloorWithBuilding](t, w)
	if fwb.Building.ID != f.buildingID || fwb.Building.Name != "Head Office" {
		t.Errorf("floor building = %+v", fwb.Building)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/rooms/%d?include=floor", f.roomB), env.adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	rwf := decode[location.RoomWithFloor](t, w)
	if rwf.Floor.ID != f.floorID || rwf.Name != "Server Room" {
		t.Errorf("room with floor = %+v", rwf)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/floors/%d/rooms", f.floorID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	rooms := decode[struct {
		Rooms []location.Room `json:"rooms"`
		Count int             `json:"count"`
	}](t, w)
	if rooms.Count != 2 || len(rooms.Rooms) != 2 {
		t.Errorf("floor rooms = %+v, want 2", rooms)
	}

	w = env.do(t, http.MethodGet, "/buildings/9999/floors", env.memberToken, nil)
	expectError(t, w, http.StatusNotFound, "not_found")

	w = env.do(t, http.MethodGet, "/buildings/abc", env.memberToken, nil)
	expectError(t, w, http.StatusBadRequest, "validation_error")
}

func TestBuildingReplaceAndPatch(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)
	path := fmt.Sprintf("/buildings/%d", f.buildingID)

	// PATCH changes only the supplied field.
	w := env.do(t, http.MethodPatch, path, env.adminToken, map[string]any{"description": "HQ"})
	expectStatus(t, w, http.StatusOK)
	got := decode[location.Building](t, w)
	if got.Name != "Head Office" || got.Address != "1 Main Street" || got.Description != "HQ" {
		t.Errorf("after PATCH = %+v", got)
	}

	// PUT needs every required field.
	w = env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"name": "Head Office"})
	expectError(t, w, http.StatusBadRequest, "validation_error")

	w = env.do(t, http.MethodPut, path, env.adminToken, map[string]any{
		"name": "Main Office", "address": "3 High Street", "description": "",
	})
	expectStatus(t, w, http.StatusOK)
	got = decode[location.Building](t, w)
	if got.Name != "Main Office" || got.Address != "3 High Street" || got.Description != "" {
		t.Errorf("after PUT = %+v", got)
	}
}

func TestCreateFloorUnknownBuilding(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/floors/", env.adminToken, map[string]any{
		"floor_number": 1, "building_id": 9999,
	})
	expectError(t, w, http.StatusBadRequest, "create_failed")
}

func TestDeleteRoom(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)
	path := fmt.Sprintf("/rooms/%d", f.roomB)

	expectStatus(t, env.do(t, http.MethodDelete, path, env.adminToken, nil), http.StatusNoContent)
	expectError(t, env.do(t, http.MethodGet, path, env.adminToken, nil), http.StatusNotFound, "not_found")
	expectError(t, env.do(t, http.MethodDelete, path, env.adminToken, nil), http.StatusNotFound, "not_found")
}

// ─── Access rules ──────────────────────────────────────────────────

func TestAccessRuleDuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	body := map[string]any{
		"room_id": f.roomA, "role_id": f.roleID,
		"time_from": "08:00", "time_to": "18:00",
	}
	w := env.do(t, http.MethodPost, "/access_rule/", env.adminToken, body)
	expectStatus(t, w, http.StatusCreated)
	rule := decode[access.Rule](t, w)
	if rule.TimeFrom.String() != "08:00:00" || rule.TimeTo.String() != "18:00:00" {
		t.Errorf("rule window = %s-%s", rule.TimeFrom, rule.TimeTo)
	}

	body["time_from"] = "09:00"
	w = env.do(t, http.MethodPost, "/access_rule/", env.adminToken, body)
	expectError(t, w, http.StatusConflict, "access_rule_already_exists")

	// Same role on a different room is fine.
	body["room_id"] = f.roomB
	w = env.do(t, http.MethodPost, "/access_rule/", env.adminToken, body)
	expectStatus(t, w, http.StatusCreated)
	second := decode[access.Rule](t, w)

	// Moving the second rule onto the first's room conflicts too.
	w = env.do(t, http.MethodPatch, fmt.Sprintf("/access_rule/%d", second.ID), env.adminToken,
		map[string]any{"room_id": f.roomA})
	expectError(t, w, http.StatusConflict, "access_rule_already_exists")

	w = env.do(t, http.MethodGet, fmt.Sprintf("/rooms/%d/access_rules", f.roomA), env.adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[struct {
		Rules []access.Rule `json:"access_rules"`
	}](t, w)
	if len(list.Rules) != 1 || list.Rules[0].ID != rule.ID {
		t.Errorf("room rules = %+v", list.Rules)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/roles/%d/access_rules", f.roleID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	if n := decode[map[string]any](t, w)["count"]; n != float64(2) {
		t.Errorf("role rules count = %v, want 2", n)
	}
}

func TestAccessRuleInvalidTime(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	w := env.do(t, http.MethodPost, "/access_rule/", env.adminToken, map[string]any{
		"room_id": f.roomA, "role_id": f.roleID, "time_from": "25:00", "time_to": "18:00",
	})
	expectError(t, w, http.StatusBadRequest, "validation_error")

	w = env.do(t, http.MethodPost, "/access_rule/", env.adminToken, map[string]any{
		"room_id": f.roomA, "role_id": f.roleID, "time_to": "18:00",
	})
	expectError(t, w, http.StatusBadRequest, "validation_error")
}

// ─── Presence ──────────────────────────────────────────────────────

func TestPresenceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	w := env.do(t, http.MethodPost, "/current_presence/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomA,
	})
	expectStatus(t, w, http.StatusCreated)
	p := decode[presence.Presence](t, w)

	// Same room again.
	w = env.do(t, http.MethodPost, "/current_presence/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomA,
	})
	expectError(t, w, http.StatusConflict, "current_presence_already_exists")

	// A different room while still present elsewhere.
	w = env.do(t, http.MethodPost, "/current_presence/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomB,
	})
	expectError(t, w, http.StatusConflict, "current_presence_already_exists")

	w = env.do(t, http.MethodGet, fmt.Sprintf("/current_presence/?room_id=%d", f.roomA), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	inRoom := decode[struct {
		Present []presence.Presence `json:"current_presence"`
	}](t, w)
	if len(inRoom.Present) != 1 || inRoom.Present[0].UserID != env.member.ID {
		t.Errorf("room presence = %+v", inRoom.Present)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/current_presence", env.member.ID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[presence.Presence](t, w); got.RoomID != f.roomA {
		t.Errorf("user presence room = %d, want %d", got.RoomID, f.roomA)
	}

	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("/current_presence/%d", p.ID), env.memberToken, nil),
		http.StatusNoContent)

	// Now the user can enter the other room.
	w = env.do(t, http.MethodPost, "/current_presence/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomB,
	})
	expectStatus(t, w, http.StatusCreated)

	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("/current_presence/user/%d", env.member.ID), env.memberToken, nil),
		http.StatusNoContent)
	expectError(t, env.do(t, http.MethodDelete, fmt.Sprintf("/current_presence/user/%d", env.member.ID), env.memberToken, nil),
		http.StatusNotFound, "not_found")
}

func TestPresenceUpdate(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)
	visitor := env.seedUser(t, "visitor@example.com", false, true)

	w := env.do(t, http.MethodPost, "/current_presence/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomA,
	})
	expectStatus(t, w, http.StatusCreated)
	p := decode[presence.Presence](t, w)

	w = env.do(t, http.MethodPost, "/current_presence/", env.adminToken, map[string]any{
		"user_id": visitor.ID, "room_id": f.roomA,
	})
	expectStatus(t, w, http.StatusCreated)

	path := fmt.Sprintf("/current_presence/%d", p.ID)

	// Move the member to room B.
	w = env.do(t, http.MethodPatch, path, env.memberToken, map[string]any{"room_id": f.roomB})
	expectStatus(t, w, http.StatusOK)
	if got := decode[presence.Presence](t, w); got.ID != p.ID || got.RoomID != f.roomB || got.UserID != env.member.ID {
		t.Errorf("PATCH = %+v", got)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/current_presence", env.member.ID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[presence.Presence](t, w); got.RoomID != f.roomB {
		t.Errorf("user presence room = %d, want %d", got.RoomID, f.roomB)
	}

	// Full replace back to room A.
	w = env.do(t, http.MethodPut, path, env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomA,
	})
	expectStatus(t, w, http.StatusOK)
	if got := decode[presence.Presence](t, w); got.RoomID != f.roomA {
		t.Errorf("PUT room = %d, want %d", got.RoomID, f.roomA)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing room", http.MethodPatch, path, map[string]any{"room_id": 9999}, http.StatusBadRequest, "update_failed"},
		{"user already present", http.MethodPatch, path, map[string]any{"user_id": visitor.ID}, http.StatusConflict, "current_presence_already_exists"},
		{"put requires both fields", http.MethodPut, path, map[string]any{"room_id": f.roomB}, http.StatusBadRequest, "validation_error"},
		{"unknown record", http.MethodPatch, "/current_presence/9999", map[string]any{"room_id": f.roomB}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, env.adminToken, tt.body)
			expectError(t, w, tt.status, tt.code)
		})
	}
}

func TestDeleteUserRemovesPresence(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)
	visitor := env.seedUser(t, "visitor@example.com", false, true)

	w := env.do(t, http.MethodPost, "/current_presence/", env.adminToken, map[string]any{
		"user_id": visitor.ID, "room_id": f.roomA,
	})
	expectStatus(t, w, http.StatusCreated)
	p := decode[presence.Presence](t, w)

	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", visitor.ID), env.adminToken, nil),
		http.StatusNoContent)
	expectError(t, env.do(t, http.MethodGet, fmt.Sprintf("/current_presence/%d", p.ID), env.adminToken, nil),
		http.StatusNotFound, "not_found")
}

// ─── Access log ────────────────────────────────────────────────────

func TestAccessLogCreateAndCorrect(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)

	w := env.do(t, http.MethodPost, "/access_log/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomB, "action": "enter", "access_allowed": false,
	})
	expectStatus(t, w, http.StatusCreated)
	entry := decode[access.LogEntry](t, w)
	if entry.Timestamp.IsZero() || entry.AccessAllowed {
		t.Errorf("created entry = %+v", entry)
	}

	w = env.do(t, http.MethodPost, "/access_log/", env.memberToken, map[string]any{
		"user_id": env.member.ID, "room_id": f.roomB, "action": "teleport", "access_allowed": true,
	})
	expectError(t, w, http.StatusBadRequest, "validation_error")

	path := fmt.Sprintf("/access_log/%d", entry.ID)
	expectError(t, env.do(t, http.MethodPatch, path, env.memberToken, map[string]any{"access_allowed": true}),
		http.StatusForbidden, "forbidden")

	w = env.do(t, http.MethodPatch, path, env.adminToken, map[string]any{"access_allowed": true})
	expectStatus(t, w, http.StatusOK)
	corrected := decode[access.LogEntry](t, w)
	if !corrected.AccessAllowed || corrected.Action != access.ActionEnter || !corrected.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("corrected entry = %+v", corrected)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/access_logs", env.member.ID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	if n := decode[map[string]any](t, w)["count"]; n != float64(1) {
		t.Errorf("user access_logs count = %v, want 1", n)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/rooms/%d/access_logs", f.roomB), env.adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	if n := decode[map[string]any](t, w)["count"]; n != float64(1) {
		t.Errorf("room access_logs count = %v, want 1", n)
	}
}

// ─── Users ─────────────────────────────────────────────────────────

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/users", "", map[string]any{
		"first_name": "Grace", "last_name": "Hopper",
		"email": "Grace@Example.com", "password": "compilers-rule",
	})
	expectStatus(t, w, http.StatusCreated)
	u := decode[auth.User](t, w)
	if u.Email != "grace@example.com" || !u.IsActive || u.IsAdmin {
		t.Errorf("signed up user = %+v", u)
	}
	if body := w.Body.String(); strings.Contains(body, "password") || strings.Contains(body, "$argon2") {
		t.Errorf("response leaks password material: %s", body)
	}

	w = env.do(t, http.MethodPost, "/users", "", map[string]any{
		"first_name": "Grace", "last_name": "Hopper",
		"email": "grace@example.com", "password": "compilers-rule",
	})
	expectError(t, w, http.StatusConflict, "user_already_exists")

	w = env.do(t, http.MethodPost, "/users", "", map[string]any{
		"first_name": "Gr", "last_name": "Hopper", "email": "not-an-email", "password": "short",
	})
	expectError(t, w, http.StatusBadRequest, "validation_error")

	w = env.do(t, http.MethodPost, "/users", "", map[string]any{
		"first_name": "Grace", "last_name": "Hopper", "email": "g2@example.com",
		"password": "compilers-rule", "is_admin": true,
	})
	expectError(t, w, http.StatusBadRequest, "validation_error")
}

func TestUserUpdatePermissions(t *testing.T) {
	env := newTestEnv(t)
	self := fmt.Sprintf("/users/%d", env.member.ID)
	other := fmt.Sprintf("/users/%d", env.admin.ID)

	// PATCH self changes only the supplied field.
	w := env.do(t, http.MethodPatch, self, env.memberToken, map[string]any{"first_name": "Renamed"})
	expectStatus(t, w, http.StatusOK)
	u := decode[auth.User](t, w)
	if u.FirstName != "Renamed" || u.LastName != "User" || u.Email != env.member.Email {
		t.Errorf("after PATCH = %+v", u)
	}

	expectError(t, env.do(t, http.MethodPatch, other, env.memberToken, map[string]any{"first_name": "Hacked"}),
		http.StatusForbidden, "forbidden")
	expectError(t, env.do(t, http.MethodPatch, self, env.memberToken, map[string]any{"is_admin": true}),
		http.StatusForbidden, "forbidden")

	// PUT requires the full profile.
	expectError(t, env.do(t, http.MethodPut, self, env.memberToken, map[string]any{"first_name": "Only"}),
		http.StatusBadRequest, "validation_error")

	// Admins may change privileges of others.
	w = env.do(t, http.MethodPatch, self, env.adminToken, map[string]any{"is_active": false})
	expectStatus(t, w, http.StatusOK)
	if decode[auth.User](t, w).IsActive {
		t.Error("member should be inactive")
	}

	// The deactivated member's token is now rejected.
	expectError(t, env.do(t, http.MethodGet, "/auth/me", env.memberToken, nil), http.StatusForbidden, "inactive_user")
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	path := fmt.Sprintf("/users/%d/password", env.member.ID)

	expectError(t, env.do(t, http.MethodPut, path, env.memberToken, map[string]any{
		"current_password": "wrong-password", "new_password": "new-password-1",
	}), http.StatusBadRequest, "validation_error")

	expectStatus(t, env.do(t, http.MethodPut, path, env.memberToken, map[string]any{
		"current_password": testPassword, "new_password": "new-password-1",
	}), http.StatusNoContent)

	// Admins reset other users without the current password.
	expectStatus(t, env.do(t, http.MethodPut, path, env.adminToken, map[string]any{
		"new_password": "new-password-2",
	}), http.StatusNoContent)

	// Members cannot change someone else's password.
	expectError(t, env.do(t, http.MethodPut, fmt.Sprintf("/users/%d/password", env.admin.ID), env.memberToken,
		map[string]any{"new_password": "new-password-3"}), http.StatusForbidden, "forbidden")

	w := env.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"username": env.member.Email, "password": "new-password-2",
	})
	expectStatus(t, w, http.StatusOK)
}

func TestUserRoles(t *testing.T) {
	env := newTestEnv(t)
	f := seedModel(t, env)
	path := fmt.Sprintf("/users/%d/roles", env.member.ID)

	w := env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"role_ids": []int64{f.roleID}})
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodGet, path, env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	roles := decode[struct {
		Roles []access.Role `json:"roles"`
	}](t, w)
	if len(roles.Roles) != 1 || roles.Roles[0].ID != f.roleID {
		t.Errorf("user roles = %+v", roles.Roles)
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/roles/%d/users", f.roleID), env.memberToken, nil)
	expectStatus(t, w, http.StatusOK)
	holders := decode[struct {
		Users []auth.User `json:"users"`
	}](t, w)
	if len(holders.Users) != 1 || holders.Users[0].ID != env.member.ID {
		t.Errorf("role users = %+v", holders.Users)
	}

	// An unknown role fails the whole replacement.
	expectError(t, env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"role_ids": []int64{f.roleID, 9999}}),
		http.StatusBadRequest, "update_failed")
	w = env.do(t, http.MethodGet, path, env.memberToken, nil)
	if n := decode[map[string]any](t, w)["count"]; n != float64(1) {
		t.Errorf("roles after failed replace = %v, want 1", n)
	}

	expectStatus(t, env.do(t, http.MethodPut, path, env.adminToken, map[string]any{"role_ids": []int64{}}), http.StatusOK)
	expectError(t, env.do(t, http.MethodPut, path, env.memberToken, map[string]any{"role_ids": []int64{f.roleID}}),
		http.StatusForbidden, "forbidden")
	expectError(t, env.do(t, http.MethodGet, "/users/9999/roles", env.memberToken, nil), http.StatusNotFound, "not_found")
}

// ─── Audit ─────────────────────────────────────────────────────────

func TestAuditTrail(t *testing.T) {
	writerRepo := &lateRepo{}
	writer := audit.NewWriter(writerRepo, logging.Discard().Logger, 64)
	env := newTestEnv(t, withAuditWriter(writer))
	writerRepo.repo = env.audit

	ctx, cancel := context.WithCancel(context.Background())
	writer.Start(ctx)

	seedModel(t, env)
	cancel()
	select {
	case <-writer.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("audit writer did not drain")
	}

	w := env.do(t, http.MethodGet, "/audit?entity_type=room&action=create", env.adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[audit.ListResult](t, w)
	if got.Total != 2 {
		t.Fatalf("room create entries = %d, want 2", got.Total)
	}
	if got.Entries[0].UserID != fmt.Sprint(env.admin.ID) {
		t.Errorf("audit user_id = %q, want %d", got.Entries[0].UserID, env.admin.ID)
	}

	expectError(t, env.do(t, http.MethodGet, "/audit?limit=-1", env.adminToken, nil), http.StatusBadRequest, "validation_error")
}

// lateRepo lets the writer be built before the test database exists.
type lateRepo struct {
	repo audit.Repository
}

func (l *lateRepo) Create(ctx context.Context, e *audit.Entry) error { return l.repo.Create(ctx, e) }

func (l *lateRepo) List(ctx context.Context, f audit.Filter) (*audit.ListResult, error) {
	return l.repo.List(ctx, f)
}
