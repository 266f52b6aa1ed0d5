package access

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

const entityLog = "AccessLog"

// LogRepository defines the interface for access log persistence.
// Lists are ordered newest first.
type LogRepository interface {
	Create(ctx context.Context, entry *LogEntry) error
	Get(ctx context.Context, id int64) (*LogEntry, error)
	List(ctx context.Context, offset, limit int) ([]LogEntry, error)
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]LogEntry, error)
	ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]LogEntry, error)
	Update(ctx context.Context, id int64, patch LogPatch) (*LogEntry, error)
	Delete(ctx context.Context, id int64) error
}

// SQLiteLogRepository implements LogRepository using SQLite.
type SQLiteLogRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewLogRepository creates a new SQLite-backed access log repository.
func NewLogRepository(db *sql.DB) *SQLiteLogRepository {
	return &SQLiteLogRepository{db: db, now: time.Now}
}

const logColumns = "id, user_id, room_id, action, access_allowed, timestamp"

// Create inserts a log entry stamped with the current time and sets its ID.
func (r *SQLiteLogRepository) Create(ctx context.Context, entry *LogEntry) error {
	entry.Timestamp = r.now().UTC().Truncate(time.Second)

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO access_logs (user_id, room_id, action, access_allowed, timestamp) VALUES (?, ?, ?, ?, ?)",
			entry.UserID, entry.RoomID, string(entry.Action), boolToInt(entry.AccessAllowed),
			entry.Timestamp.Format(time.RFC3339))
		if err != nil {
			return err
		}
		entry.ID, err = result.LastInsertId()
		return err
	})
	return apperr.FromWrite(apperr.OpCreate, entityLog, nil, err)
}

// Get retrieves a log entry by ID.
func (r *SQLiteLogRepository) Get(ctx context.Context, id int64) (*LogEntry, error) {
	return getLog(ctx, r.db, id)
}

// List returns a page of log entries.
func (r *SQLiteLogRepository) List(ctx context.Context, offset, limit int) ([]LogEntry, error) {
	return r.queryLogs(ctx,
		"SELECT "+logColumns+" FROM access_logs ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?", limit, offset)
}

// ListByUser returns a page of a user's log entries.
func (r *SQLiteLogRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]LogEntry, error) {
	return r.queryLogs(ctx,
		"SELECT "+logColumns+" FROM access_logs WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
}

// ListByRoom returns a page of a room's log entries.
func (r *SQLiteLogRepository) ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]LogEntry, error) {
	return r.queryLogs(ctx,
		"SELECT "+logColumns+" FROM access_logs WHERE room_id = ? ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		roomID, limit, offset)
}

// Update applies a partial update. The timestamp is never changed.
func (r *SQLiteLogRepository) Update(ctx context.Context, id int64, patch LogPatch) (*LogEntry, error) {
	var updated *LogEntry
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		entry, err := getLog(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(entry)
		if _, err := tx.ExecContext(ctx,
			"UPDATE access_logs SET user_id = ?, room_id = ?, action = ?, access_allowed = ? WHERE id = ?",
			entry.UserID, entry.RoomID, string(entry.Action), boolToInt(entry.AccessAllowed), id); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, apperr.FromWrite(apperr.OpUpdate, entityLog, id, err)
	}
	return updated, nil
}

// Delete removes a log entry.
func (r *SQLiteLogRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "access_logs", entityLog, id)
}

func (r *SQLiteLogRepository) queryLogs(ctx context.Context, query string, args ...any) ([]LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromRead(fmt.Errorf("listing access logs: %w", err))
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		e, err := scanLogFrom(rows)
		if err != nil {
			return nil, apperr.FromRead(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromRead(fmt.Errorf("iterating access logs: %w", err))
	}
	return entries, nil
}

func getLog(ctx context.Context, q database.Querier, id int64) (*LogEntry, error) {
	e, err := scanLogFrom(q.QueryRowContext(ctx, "SELECT "+logColumns+" FROM access_logs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(entityLog, id)
	}
	if err != nil {
		return nil, apperr.FromRead(err)
	}
	return e, nil
}

func scanLogFrom(s scanner) (*LogEntry, error) {
	var e LogEntry
	var action, ts string
	var allowed int
	if err := s.Scan(&e.ID, &e.UserID, &e.RoomID, &action, &allowed, &ts); err != nil {
		return nil, err
	}
	e.Action = Action(action)
	e.AccessAllowed = allowed != 0
	e.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // format is controlled
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Recorder writes access log entries and announces them to event sinks.
type Recorder struct {
	logs      LogRepository
	publisher events.Publisher
}

// NewRecorder creates a Recorder. A nil publisher discards events.
func NewRecorder(logs LogRepository, publisher events.Publisher) *Recorder {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Recorder{logs: logs, publisher: publisher}
}

// Record stores entry and publishes an access.logged event once it has committed.
func (r *Recorder) Record(ctx context.Context, entry *LogEntry) error {
	if err := r.logs.Create(ctx, entry); err != nil {
		return err
	}
	r.publisher.Publish(ctx, events.Event{
		Type:      events.TypeAccessLogged,
		UserID:    entry.UserID,
		RoomID:    entry.RoomID,
		Action:    string(entry.Action),
		Allowed:   entry.AccessAllowed,
		Timestamp: entry.Timestamp,
	})
	return nil
}
