// Package devicelink exposes the delivery queue to devices over MQTT.
//
// A device publishes to graylogic/notify/poll/{target}, where target is its
// ID, current number or legacy number, and receives a DeliveryResponse on
// graylogic/notify/delivery/{target}. Messages in a successful response
// have been claimed: they will not be returned by any later poll.
//
// After each enqueue the link publishes a PendingNotice on
// graylogic/notify/pending/{device_id} so a connected device can poll
// without waiting for its schedule.
package devicelink
