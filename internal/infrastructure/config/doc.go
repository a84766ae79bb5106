// Package config handles loading and validating Gray Logic Notify configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Notifications.PendingTTL)
//
// Retention:
//
// The two queue TTLs are independent. Messages that were never claimed are
// kept for notifications.pending_ttl after enqueue; claimed messages are kept
// for notifications.delivered_ttl after the claim:
//
//	notifications:
//	  pending_ttl: "720h"
//	  delivered_ttl: "168h"
//	  purge_interval: "24h"
package config
