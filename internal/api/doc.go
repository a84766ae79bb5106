// Package api implements the HTTP REST API for Gray Logic Notify.
//
// This package provides:
//   - Producer endpoints to enqueue messages and look up their status
//   - A device endpoint to claim pending messages over HTTP
//   - Device alias management (id, current number, legacy number)
//   - Maintenance endpoints for queue statistics and an on-demand purge
//   - Middleware stack (request ID, logging, recovery, body size limit)
//   - TLS support for production deployments
//
// # Delivery semantics
//
// A claim response is the only copy of the claimed messages. Once a claim
// returns 200 the messages are marked delivered and no later claim, over
// HTTP or MQTT, will return them again.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB; their absence only shows up
// in the health and metrics responses.
package api
