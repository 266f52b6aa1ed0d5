// Package events distributes presence and access-log events to optional sinks.
//
// Producers hold a Publisher. The Fanout implementation forwards every event
// to each configured Sink (MQTT topics, InfluxDB points, WebSocket clients)
// and logs sink failures. Publishing never returns an error to the producer:
// by the time an event is published the database change has committed, and a
// broker outage must not turn a successful request into a failed one.
//
// Topics:
//
//	graylogic/access/presence/{room_id}   presence.entered, presence.exited
//	graylogic/access/log/{room_id}        access.logged
package events
