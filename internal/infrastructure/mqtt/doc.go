// Package mqtt provides the broker connection used by the notify service's
// device link.
//
// Devices and the service talk over a small topic tree under
// graylogic/notify (see Topics). The client reconnects with exponential
// backoff, restores subscriptions after a reconnect, and maintains a
// retained online/offline status with a Last Will for crashes.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllPolls(), 1, handlePoll)
package mqtt
