package events

import (
	"context"
	"time"
)

// PointWriter is the subset of the InfluxDB client used by InfluxSink.
type PointWriter interface {
	WriteAccessEvent(eventType string, userID, roomID int64, action string, allowed bool, ts time.Time)
}

// InfluxSink records events as time-series points.
type InfluxSink struct {
	writer PointWriter
}

// NewInfluxSink creates an InfluxDB sink.
func NewInfluxSink(writer PointWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Deliver implements Sink. Writes are batched by the client and never fail here.
func (s *InfluxSink) Deliver(_ context.Context, e Event) error {
	s.writer.WriteAccessEvent(string(e.Type), e.UserID, e.RoomID, e.Action, e.Allowed, e.Timestamp)
	return nil
}
