package influxdb

import "errors"

// Sentinel errors. Connect wraps ErrConnectionFailed with the cause.
var (
	ErrDisabled         = errors.New("influxdb: access event history is disabled")
	ErrConnectionFailed = errors.New("influxdb: cannot reach server")
	ErrNotConnected     = errors.New("influxdb: client closed or never connected")
)
