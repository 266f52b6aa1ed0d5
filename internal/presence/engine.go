package presence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
	"github.com/nerrad567/gray-logic-access/internal/events"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
)

const entityPresence = "CurrentPresence"

// Presence records that a user is currently in a room.
type Presence struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine enters and exits users from rooms.
type Engine struct {
	db        *sql.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewEngine creates a presence engine. A nil publisher discards events.
func NewEngine(db *sql.DB, publisher events.Publisher) *Engine {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Engine{db: db, publisher: publisher, now: time.Now}
}

const presenceColumns = "id, user_id, room_id, timestamp"

// Enter records userID as present in roomID.
func (e *Engine) Enter(ctx context.Context, userID, roomID int64) (*Presence, error) {
	p := &Presence{UserID: userID, RoomID: roomID, Timestamp: e.now().UTC().Truncate(time.Second)}

	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO current_presence (user_id, room_id, timestamp) VALUES (?, ?, ?)",
			userID, roomID, p.Timestamp.Format(time.RFC3339))
		if err != nil {
			return classifyWriteError(err, userID, roomID)
		}
		p.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpCreate, entityPresence, nil, err)
	}

	e.publish(ctx, events.TypePresenceEntered, p, p.Timestamp)
	return p, nil
}

// Patch is a partial update of a presence record. Nil fields are kept.
type Patch struct {
	UserID *int64
	RoomID *int64
}

// Apply merges the set fields of p into pr.
func (p Patch) Apply(pr *Presence) {
	if p.UserID != nil {
		pr.UserID = *p.UserID
	}
	if p.RoomID != nil {
		pr.RoomID = *p.RoomID
	}
}

// Update rewrites a presence record. Moving to another room or user resets
// the timestamp and publishes an exit from the old room followed by an
// entry into the new one.
func (e *Engine) Update(ctx context.Context, id int64, patch Patch) (*Presence, error) {
	var before, after *Presence
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		p, err := scanPresenceFrom(tx.QueryRowContext(ctx,
			"SELECT "+presenceColumns+" FROM current_presence WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(entityPresence, id)
		}
		if err != nil {
			return err
		}

		updated := *p
		patch.Apply(&updated)
		if updated.UserID == p.UserID && updated.RoomID == p.RoomID {
			before, after = p, p
			return nil
		}
		updated.Timestamp = e.now().UTC().Truncate(time.Second)

		if _, err := tx.ExecContext(ctx,
			"UPDATE current_presence SET user_id = ?, room_id = ?, timestamp = ? WHERE id = ?",
			updated.UserID, updated.RoomID, updated.Timestamp.Format(time.RFC3339), id); err != nil {
			return classifyWriteError(err, updated.UserID, updated.RoomID)
		}
		before, after = p, &updated
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityPresence, id, err)
	}

	if before != after {
		e.publish(ctx, events.TypePresenceExited, before, after.Timestamp)
		e.publish(ctx, events.TypePresenceEntered, after, after.Timestamp)
	}
	return after, nil
}

// Exit removes a presence record by ID.
func (e *Engine) Exit(ctx context.Context, id int64) error {
	return e.exitWhere(ctx, "id", id, func() error { return apperr.NotFound(entityPresence, id) })
}

// ExitUser removes the presence record of a user, wherever they are.
func (e *Engine) ExitUser(ctx context.Context, userID int64) error {
	return e.exitWhere(ctx, "user_id", userID, func() error {
		return apperr.NotFoundBy(entityPresence, "user_id", userID)
	})
}

func (e *Engine) exitWhere(ctx context.Context, column string, value int64, notFound func() error) error {
	var removed *Presence
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		p, err := scanPresenceFrom(tx.QueryRowContext(ctx,
			"SELECT "+presenceColumns+" FROM current_presence WHERE "+column+" = ?", value))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound()
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM current_presence WHERE id = ?", p.ID); err != nil {
			return err
		}
		removed = p
		return nil
	})
	if err != nil {
		return apperr.FromWrite(apperr.OpDelete, entityPresence, value, err)
	}

	e.publish(ctx, events.TypePresenceExited, removed, e.now().UTC())
	return nil
}

// Get retrieves a presence record by ID.
func (e *Engine) Get(ctx context.Context, id int64) (*Presence, error) {
	p, err := scanPresenceFrom(e.db.QueryRowContext(ctx,
		"SELECT "+presenceColumns+" FROM current_presence WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityPresence, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return p, nil
}

// GetByUser returns where a user currently is.
func (e *Engine) GetByUser(ctx context.Context, userID int64) (*Presence, error) {
	p, err := scanPresenceFrom(e.db.QueryRowContext(ctx,
		"SELECT "+presenceColumns+" FROM current_presence WHERE user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundBy(entityPresence, "user_id", userID)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return p, nil
}

// List returns a page of presence records ordered by ID.
func (e *Engine) List(ctx context.Context, offset, limit int) ([]Presence, error) {
	return e.query(ctx,
		"SELECT "+presenceColumns+" FROM current_presence ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListByRoom returns a page of the users present in a room.
func (e *Engine) ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]Presence, error) {
	return e.query(ctx,
		"SELECT "+presenceColumns+" FROM current_presence WHERE room_id = ? ORDER BY id LIMIT ? OFFSET ?",
		roomID, limit, offset)
}

func (e *Engine) query(ctx context.Context, query string, args ...any) ([]Presence, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing presence: %w", err))
	}
	defer rows.Close()

	out := []Presence{}
	for rows.Next() {
		p, err := scanPresenceFrom(rows)
		if err != nil {
			return nil, apperr.FromRead(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating presence: %w", err))
	}
	return out, nil
}

func (e *Engine) publish(ctx context.Context, t events.Type, p *Presence, at time.Time) {
	e.publisher.Publish(ctx, events.Event{
		Type:      t,
		UserID:    p.UserID,
		RoomID:    p.RoomID,
		Allowed:   true,
		Timestamp: at,
	})
}

// classifyWriteError replaces a recognised unique violation with its
// taxonomy error and returns anything else unchanged.
func classifyWriteError(err error, userID, roomID int64) error {
	if v, ok := database.AsConstraintViolation(err); ok {
		if classified := classifyViolation(v, userID, roomID); classified != nil {
			return classified
		}
	}
	return err
}

// classifyViolation maps a unique violation on current_presence to its
// specialisation. It returns nil for violations it does not recognise.
//
// With idx_current_presence_user in place SQLite reports the user_id index
// for any duplicate user, so the conflict branch is only reachable if that
// index is ever dropped in favour of the (room_id, user_id) one.
func classifyViolation(v *database.ConstraintViolation, userID, roomID int64) error {
	if v.Kind != database.ConstraintUnique {
		return nil
	}
	switch {
	case v.Covers("room_id", "user_id"):
		return apperr.CurrentPresenceConflict(userID, roomID)
	case v.Exactly("user_id"):
		return apperr.CurrentPresenceAlreadyExists(userID)
	default:
		return nil
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPresenceFrom(s scanner) (*Presence, error) {
	var p Presence
	var ts string
	if err := s.Scan(&p.ID, &p.UserID, &p.RoomID, &ts); err != nil {
		return nil, err
	}
	p.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // format is controlled
	return &p, nil
}
