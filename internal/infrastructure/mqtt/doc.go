// Package mqtt connects the access service to an MQTT broker.
//
// The broker carries two kinds of traffic:
//   - outbound: presence changes and access log entries, published per room
//     under the configured topic prefix (see Topics)
//   - inbound: door reader events, which are recorded as access log entries
//
// The client reconnects with backoff, restores subscriptions after a
// reconnect and keeps a retained online/offline status on
// {prefix}/system/status, backed by a Last Will for unclean exits.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sink := events.NewMQTTSink(client, client.Topics(), client.QoS())
package mqtt
