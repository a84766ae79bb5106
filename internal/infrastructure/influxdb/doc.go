// Package influxdb records queue metrics in InfluxDB v2.
//
// The notification service writes one point per enqueue and claim and one
// per purge sweep. Metrics are optional: when influxdb.enabled is false,
// Connect returns ErrDisabled and the service runs without them.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without metrics
//	}
//	client.WritePoint("notification_queue",
//	    map[string]string{"event": "enqueued"},
//	    map[string]any{"count": 1})
package influxdb
