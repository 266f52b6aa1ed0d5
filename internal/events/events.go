package events

import (
	"context"
	"log/slog"
	"time"
)

// Type names an event.
type Type string

// Event types.
const (
	TypePresenceEntered Type = "presence.entered"
	TypePresenceExited  Type = "presence.exited"
	TypeAccessLogged    Type = "access.logged"
)

// IsPresence reports whether t is a presence change.
func (t Type) IsPresence() bool {
	return t == TypePresenceEntered || t == TypePresenceExited
}

// Event is a presence change or a recorded access log entry.
type Event struct {
	Type      Type      `json:"type"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	Action    string    `json:"action,omitempty"`
	Allowed   bool      `json:"access_allowed"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher accepts events from producers.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Fanout publishes each event to every sink in order.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a publisher over the given sinks. Nil sinks are skipped.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fanout{logger: logger}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add registers another sink. It must be called before publishing starts.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Publish delivers e to every sink. Sink errors are logged and otherwise ignored.
func (f *Fanout) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, e); err != nil {
			f.logger.Warn("event delivery failed",
				"sink", s.Name(),
				"type", string(e.Type),
				"room_id", e.RoomID,
				"error", err,
			)
		}
	}
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}
