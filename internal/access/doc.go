// Package access manages roles, access rules and the access log.
//
// An AccessRule grants one role entry to one room during a daily time window.
// At most one rule exists per (room, role) pair. The pair is guarded by a
// unique index and a violation on create or update is reported as
// apperr.ErrAccessRuleAlreadyExists; nothing checks before writing, so two
// concurrent creates for the same pair yield exactly one rule.
//
// Windows are stored as given. A window whose start is after its end is
// accepted and not interpreted (it is not treated as wrapping midnight).
//
// The access log is an append-only history of enter and exit events. Whether
// an entry was allowed is recorded from the caller; rules are not evaluated
// here.
package access
