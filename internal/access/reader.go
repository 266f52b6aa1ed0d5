package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// readerTimeout bounds the database write for one reader message.
const readerTimeout = 5 * time.Second

// ReaderTopics extracts the room from a door reader topic.
type ReaderTopics interface {
	ParseReaderEvent(topic string) (roomID int64, ok bool)
}

// ReaderEvent is the payload a door reader publishes. The reader decides
// access_allowed; the service only records it.
type ReaderEvent struct {
	UserID        int64  `json:"user_id"`
	Action        Action `json:"action"`
	AccessAllowed bool   `json:"access_allowed"`
}

// ReaderIngest turns door reader messages into access log entries.
type ReaderIngest struct {
	recorder *Recorder
	topics   ReaderTopics
	logger   *slog.Logger
}

// NewReaderIngest creates an ingest handler writing through recorder.
func NewReaderIngest(recorder *Recorder, topics ReaderTopics, logger *slog.Logger) *ReaderIngest {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaderIngest{recorder: recorder, topics: topics, logger: logger}
}

// Handle records one reader message. Its signature matches the MQTT
// client's MessageHandler.
func (r *ReaderIngest) Handle(topic string, payload []byte) error {
	roomID, ok := r.topics.ParseReaderEvent(topic)
	if !ok {
		return fmt.Errorf("reader event on unexpected topic %q", topic)
	}

	var ev ReaderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decoding reader event: %w", err)
	}
	if ev.UserID <= 0 {
		return fmt.Errorf("reader event for room %d: missing user_id", roomID)
	}
	if !ev.Action.Valid() {
		return fmt.Errorf("reader event for room %d: invalid action %q", roomID, ev.Action)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readerTimeout)
	defer cancel()

	entry := &LogEntry{
		UserID:        ev.UserID,
		RoomID:        roomID,
		Action:        ev.Action,
		AccessAllowed: ev.AccessAllowed,
	}
	if err := r.recorder.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording reader event for room %d: %w", roomID, err)
	}

	r.logger.Debug("reader event recorded",
		"log_id", entry.ID,
		"user_id", entry.UserID,
		"room_id", roomID,
		"action", string(entry.Action),
		"access_allowed", entry.AccessAllowed,
	)
	return nil
}
