// Package apperr defines the single error type shared by the domain packages
// and the HTTP boundary.
//
// Every failure a caller can act on is an *Error carrying a Kind (which fixes
// the HTTP status), an optional specialisation Code, a human-readable Detail
// and an optional wrapped Cause. The API layer maps errors to responses with
// one switch over Kind; nothing else needs to know about status codes.
//
// Matching uses errors.Is against the exported sentinels:
//
//	if errors.Is(err, apperr.ErrCurrentPresenceAlreadyExists) {
//	    // user must exit first
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

// Kind classifies an error.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindIncorrectLoginData
	KindInactiveUser
	KindForbidden
	KindNotFound
	KindAlreadyExists
	KindValidation
	KindCreateFailed
	KindUpdateFailed
	KindDeleteFailed
	KindOperational
)

var kindNames = map[Kind]string{
	KindInternal:           "internal_error",
	KindInvalidCredentials: "invalid_credentials",
	KindIncorrectLoginData: "incorrect_login_data",
	KindInactiveUser:       "inactive_user",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindAlreadyExists:      "already_exists",
	KindValidation:         "validation_error",
	KindCreateFailed:       "create_failed",
	KindUpdateFailed:       "update_failed",
	KindDeleteFailed:       "delete_failed",
	KindOperational:        "operational_error",
}

// String returns the snake_case name used as the default response code.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidCredentials, KindIncorrectLoginData:
		return http.StatusUnauthorized
	case KindInactiveUser, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindValidation, KindCreateFailed, KindUpdateFailed, KindDeleteFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Specialisation codes for KindAlreadyExists.
const (
	CodeUserExists                   = "user_already_exists"
	CodeRoleExists                   = "role_already_exists"
	CodeBuildingExists               = "building_already_exists"
	CodeFloorExists                  = "floor_already_exists"
	CodeRoomExists                   = "room_already_exists"
	CodeAccessRuleExists             = "access_rule_already_exists"
	CodeCurrentPresenceAlreadyExists = "current_presence_already_exists"
	CodeCurrentPresenceConflict      = "current_presence_conflict"
)

// Error is the flat application error.
type Error struct {
	Kind Kind

	// Code refines Kind (for example which entity already exists).
	// Empty means Kind.String().
	Code string

	// Detail is safe to show to the caller.
	Detail string

	// Status overrides Kind.Status() when non-zero.
	Status int

	// Cause is the underlying error. It is logged, never returned to the caller.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Cause)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same Kind and, when the target sets one, the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// HTTPStatus returns the response status for the error.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// ResponseCode returns the machine-readable code for the response body.
func (e *Error) ResponseCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidCredentials            = &Error{Kind: KindInvalidCredentials}
	ErrIncorrectLoginData            = &Error{Kind: KindIncorrectLoginData}
	ErrInactiveUser                  = &Error{Kind: KindInactiveUser}
	ErrForbidden                     = &Error{Kind: KindForbidden}
	ErrNotFound                      = &Error{Kind: KindNotFound}
	ErrAlreadyExists                 = &Error{Kind: KindAlreadyExists}
	ErrValidation                    = &Error{Kind: KindValidation}
	ErrCreateFailed                  = &Error{Kind: KindCreateFailed}
	ErrUpdateFailed                  = &Error{Kind: KindUpdateFailed}
	ErrDeleteFailed                  = &Error{Kind: KindDeleteFailed}
	ErrOperational                   = &Error{Kind: KindOperational}
	ErrAccessRuleAlreadyExists       = &Error{Kind: KindAlreadyExists, Code: CodeAccessRuleExists}
	ErrCurrentPresenceAlreadyExists  = &Error{Kind: KindAlreadyExists, Code: CodeCurrentPresenceAlreadyExists}
	ErrCurrentPresenceConflict       = &Error{Kind: KindAlreadyExists, Code: CodeCurrentPresenceConflict}
	ErrUserAlreadyExists             = &Error{Kind: KindAlreadyExists, Code: CodeUserExists}
	ErrRoleAlreadyExists             = &Error{Kind: KindAlreadyExists, Code: CodeRoleExists}
	ErrBuildingAlreadyExists         = &Error{Kind: KindAlreadyExists, Code: CodeBuildingExists}
	ErrFloorAlreadyExists            = &Error{Kind: KindAlreadyExists, Code: CodeFloorExists}
	ErrRoomAlreadyExists             = &Error{Kind: KindAlreadyExists, Code: CodeRoomExists}
)

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// ─── Constructors ───────────────────────────────────────────────────

// InvalidCredentials is returned for a bad, expired or wrong-kind token,
// or a token whose subject no longer resolves to a user.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Detail: "Invalid authentication credentials"}
}

// IncorrectLoginData is returned when an email and password do not match.
// It never says which of the two was wrong.
func IncorrectLoginData() *Error {
	return &Error{Kind: KindIncorrectLoginData, Detail: "Incorrect email or password"}
}

// InactiveUser is returned when a deactivated account makes an authenticated call.
func InactiveUser() *Error {
	return &Error{Kind: KindInactiveUser, Detail: "User is inactive"}
}

// Forbidden is returned when the caller lacks the privilege for an operation.
func Forbidden(detail string) *Error {
	if detail == "" {
		detail = "The user doesn't have enough privileges"
	}
	return &Error{Kind: KindForbidden, Detail: detail}
}

// NotFound is returned when an entity lookup by id misses.
func NotFound(entity string, id any) *Error {
	return NotFoundBy(entity, "id", id)
}

// NotFoundBy is returned when an entity lookup by another field misses.
func NotFoundBy(entity, field string, value any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("%s with %s=%v not found", entity, field, value)}
}

// AlreadyExists is returned when a unique field is already taken.
func AlreadyExists(code, entity, field string, value any) *Error {
	return &Error{
		Kind:   KindAlreadyExists,
		Code:   code,
		Detail: fmt.Sprintf("%s with %s=%v already exists", entity, field, value),
	}
}

// AccessRuleAlreadyExists is returned when a rule for the room and role pair exists.
func AccessRuleAlreadyExists(roomID, roleID int64) *Error {
	return &Error{
		Kind:   KindAlreadyExists,
		Code:   CodeAccessRuleExists,
		Detail: fmt.Sprintf("AccessRule with room_id=%d and role_id=%d already exists", roomID, roleID),
	}
}

// CurrentPresenceAlreadyExists is returned when the user is already present in some room.
func CurrentPresenceAlreadyExists(userID int64) *Error {
	return &Error{
		Kind:   KindAlreadyExists,
		Code:   CodeCurrentPresenceAlreadyExists,
		Detail: fmt.Sprintf("CurrentPresence with user_id=%d already exists", userID),
	}
}

// CurrentPresenceConflict is returned when the user and room combination is already taken.
func CurrentPresenceConflict(userID, roomID int64) *Error {
	return &Error{
		Kind:   KindAlreadyExists,
		Code:   CodeCurrentPresenceConflict,
		Detail: fmt.Sprintf("CurrentPresence with user_id=%d and room_id=%d conflicts with an existing record", userID, roomID),
	}
}

// Validation is returned for malformed request input.
func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

// CreateFailed is returned for an unclassified storage failure on insert.
func CreateFailed(entity string, cause error) *Error {
	return &Error{Kind: KindCreateFailed, Detail: fmt.Sprintf("Failed to create %s", entity), Cause: cause}
}

// UpdateFailed is returned for an unclassified storage failure on update.
func UpdateFailed(entity string, id any, cause error) *Error {
	return &Error{Kind: KindUpdateFailed, Detail: fmt.Sprintf("Failed to update %s with id=%v", entity, id), Cause: cause}
}

// DeleteFailed is returned for an unclassified storage failure on delete.
func DeleteFailed(entity string, id any, cause error) *Error {
	return &Error{Kind: KindDeleteFailed, Detail: fmt.Sprintf("Failed to delete %s with id=%v", entity, id), Cause: cause}
}

// Operational is returned when storage itself is unavailable or failing.
func Operational(cause error) *Error {
	return &Error{Kind: KindOperational, Detail: "Storage is unavailable", Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Detail: "Internal server error", Cause: cause}
}

// ─── Storage classification ─────────────────────────────────────────

// Op names the mutation a storage error came from.
type Op int

// Mutation operations.
const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

// FromWrite converts a failed mutation into the taxonomy.
// Errors already in the taxonomy pass through. Operational storage failures
// become KindOperational; anything else becomes the operation's failure kind.
// Repositories map unique violations to AlreadyExists before calling this.
func FromWrite(op Op, entity string, id any, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if database.IsOperational(err) {
		return Operational(err)
	}
	switch op {
	case OpUpdate:
		return UpdateFailed(entity, id, err)
	case OpDelete:
		return DeleteFailed(entity, id, err)
	default:
		return CreateFailed(entity, err)
	}
}

// FromRead converts a failed query. Operational failures keep their kind;
// everything else is unexpected.
func FromRead(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if database.IsOperational(err) {
		return Operational(err)
	}
	return Internal(err)
}
