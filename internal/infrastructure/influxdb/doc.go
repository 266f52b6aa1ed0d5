// Package influxdb records access events as time-series points.
//
// Every presence change and access log entry becomes one point in the
// access_event measurement, tagged by room, event type, action and outcome.
// Writes are batched according to batch_size and flush_interval and never
// block the request that produced the event. Batch errors are delivered
// through SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sink := events.NewInfluxSink(client)
package influxdb
