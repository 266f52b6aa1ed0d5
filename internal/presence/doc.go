// Package presence tracks which room each user is currently in.
//
// A user is present in at most one room. Two unique indexes enforce this:
// one on user_id and one on (room_id, user_id). Engine.Enter attempts the
// insert and classifies which index rejected it:
//
//   - user_id only: the user is already present elsewhere
//     (apperr.ErrCurrentPresenceAlreadyExists)
//   - room_id and user_id: the combination is already taken
//     (apperr.ErrCurrentPresenceConflict)
//
// Both surface as 409. Callers must Exit before entering another room; no
// automatic move is performed.
//
// Presence changes are published to the events package after the
// transaction commits. They do not write access log rows.
package presence
