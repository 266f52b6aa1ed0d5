package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// MQTTPublisher is the subset of the MQTT client used by MQTTSink.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TopicBuilder maps a room to its presence and access-log topics.
type TopicBuilder interface {
	Presence(roomID int64) string
	AccessLog(roomID int64) string
}

// MQTTSink publishes events as JSON to per-room topics.
type MQTTSink struct {
	client MQTTPublisher
	topics TopicBuilder
	qos    byte
}

// NewMQTTSink creates an MQTT sink publishing at the given QoS.
func NewMQTTSink(client MQTTPublisher, topics TopicBuilder, qos byte) *MQTTSink {
	return &MQTTSink{client: client, topics: topics, qos: qos}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Deliver implements Sink. Events are never retained.
func (s *MQTTSink) Deliver(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	topic := s.topics.AccessLog(e.RoomID)
	if e.Type.IsPresence() {
		topic = s.topics.Presence(e.RoomID)
	}
	return s.client.Publish(topic, payload, s.qos, false)
}
