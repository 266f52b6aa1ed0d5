package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementAccessEvent holds one point per presence change or access log entry.
const MeasurementAccessEvent = "access_event"

// WriteAccessEvent records an access event. The write is non-blocking and
// silently skipped when the client is not connected.
//
// Room, event type, action and outcome are tags; the user ID is a field to
// keep series cardinality bounded by the number of rooms.
func (c *Client) WriteAccessEvent(eventType string, userID, roomID int64, action string, allowed bool, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(accessEventPoint(eventType, userID, roomID, action, allowed, ts))
}

func accessEventPoint(eventType string, userID, roomID int64, action string, allowed bool, ts time.Time) *write.Point {
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{
		"room_id": strconv.FormatInt(roomID, 10),
		"type":    eventType,
		"allowed": strconv.FormatBool(allowed),
	}
	if action != "" {
		tags["action"] = action
	}

	return write.NewPoint(
		MeasurementAccessEvent,
		tags,
		map[string]interface{}{
			"user_id": userID,
		},
		ts,
	)
}
