package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "graylogic/access"

// Topics builds the access-control topic hierarchy under a common prefix:
//
//	{prefix}/presence/{room_id}       presence.entered / presence.exited
//	{prefix}/log/{room_id}            access.logged
//	{prefix}/reader/{room_id}/event   door reader input
//	{prefix}/system/status            retained online/offline status
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder rooted at prefix.
// Trailing slashes are dropped.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of the hierarchy.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Presence returns the topic presence changes in a room are published on.
func (t Topics) Presence(roomID int64) string {
	return fmt.Sprintf("%s/presence/%d", t.Prefix(), roomID)
}

// AllPresence matches presence changes in every room.
func (t Topics) AllPresence() string {
	return t.Prefix() + "/presence/+"
}

// AccessLog returns the topic access log entries for a room are published on.
func (t Topics) AccessLog(roomID int64) string {
	return fmt.Sprintf("%s/log/%d", t.Prefix(), roomID)
}

// ReaderEvent returns the topic a room's door reader publishes on.
func (t Topics) ReaderEvent(roomID int64) string {
	return fmt.Sprintf("%s/reader/%d/event", t.Prefix(), roomID)
}

// AllReaderEvents matches reader input from every room.
func (t Topics) AllReaderEvents() string {
	return t.Prefix() + "/reader/+/event"
}

// SystemStatus returns the retained service status topic, also used for LWT.
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}

// ParseReaderEvent extracts the room ID from a reader event topic.
func (t Topics) ParseReaderEvent(topic string) (int64, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix()+"/reader/")
	if !ok {
		return 0, false
	}
	id, ok := strings.CutSuffix(rest, "/event")
	if !ok || id == "" || strings.Contains(id, "/") {
		return 0, false
	}
	roomID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || roomID <= 0 {
		return 0, false
	}
	return roomID, true
}
