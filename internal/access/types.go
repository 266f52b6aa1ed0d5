package access

import "time"

// Role is a named group of users that access rules are granted to.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RolePatch is a partial update of a role. Nil fields are unchanged.
type RolePatch struct {
	Name        *string
	Description *string
}

// Apply merges the set fields of p into r.
func (p RolePatch) Apply(r *Role) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
}

// Rule grants a role entry to a room between TimeFrom and TimeTo each day.
type Rule struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"room_id"`
	RoleID   int64     `json:"role_id"`
	TimeFrom TimeOfDay `json:"time_from"`
	TimeTo   TimeOfDay `json:"time_to"`
}

// RulePatch is a partial update of an access rule. Nil fields are unchanged.
type RulePatch struct {
	RoomID   *int64
	RoleID   *int64
	TimeFrom *TimeOfDay
	TimeTo   *TimeOfDay
}

// Apply merges the set fields of p into r.
func (p RulePatch) Apply(r *Rule) {
	if p.RoomID != nil {
		r.RoomID = *p.RoomID
	}
	if p.RoleID != nil {
		r.RoleID = *p.RoleID
	}
	if p.TimeFrom != nil {
		r.TimeFrom = *p.TimeFrom
	}
	if p.TimeTo != nil {
		r.TimeTo = *p.TimeTo
	}
}

// Action is the direction of an access log event.
type Action string

// Access log actions.
const (
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionEnter || a == ActionExit
}

// LogEntry is one historical enter or exit event.
type LogEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	RoomID        int64     `json:"room_id"`
	Action        Action    `json:"action"`
	AccessAllowed bool      `json:"access_allowed"`
	Timestamp     time.Time `json:"timestamp"`
}

// LogPatch is a partial update of a log entry. The timestamp cannot be changed.
type LogPatch struct {
	UserID        *int64
	RoomID        *int64
	Action        *Action
	AccessAllowed *bool
}

// Apply merges the set fields of p into e.
func (p LogPatch) Apply(e *LogEntry) {
	if p.UserID != nil {
		e.UserID = *p.UserID
	}
	if p.RoomID != nil {
		e.RoomID = *p.RoomID
	}
	if p.Action != nil {
		e.Action = *p.Action
	}
	if p.AccessAllowed != nil {
		e.AccessAllowed = *p.AccessAllowed
	}
}
