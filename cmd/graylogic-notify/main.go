// Gray Logic Notify - store-and-forward notification queue for devices.
//
// Producers enqueue messages for a device over HTTP. Devices claim them by
// polling, over HTTP or MQTT, using their ID, current number or legacy
// number. Messages are purged on a fixed interval once their status TTL
// expires.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-notify/migrations"

	"github.com/nerrad567/gray-logic-notify/internal/api"
	"github.com/nerrad567/gray-logic-notify/internal/audit"
	"github.com/nerrad567/gray-logic-notify/internal/device"
	"github.com/nerrad567/gray-logic-notify/internal/devicelink"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notify/internal/notification"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Notify",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry, err := startDeviceRegistry(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	// Connect to InfluxDB (optional)
	var metrics notification.MetricsWriter
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var link *devicelink.Link
	var notifier notification.Notifier
	if cfg.Notifications.DeviceLink.Enabled && mqttClient != nil {
		link = devicelink.New(devicelink.Config{
			Broker: mqttClient,
			QoS:    byte(cfg.Notifications.DeviceLink.QoS), //nolint:gosec // validated 0..2
		})
		link.SetLogger(log.Component("devicelink"))
		notifier = link
	}

	svc := notification.NewService(notification.ServiceConfig{
		Repository: notification.NewSQLiteRepository(db.DB),
		Resolver:   registry,
		Policy:     notification.NewAllowList(cfg.Notifications.EnabledTypes),
		Notifier:   notifier,
		Metrics:    metrics,
	})
	svc.SetLogger(log.Component("notification"))

	reaper := notification.NewReaper(notification.ReaperConfig{
		Purger:       svc,
		PendingTTL:   cfg.Notifications.PendingTTL,
		DeliveredTTL: cfg.Notifications.DeliveredTTL,
		Interval:     cfg.Notifications.PurgeInterval,
		PurgeOnStart: cfg.Notifications.PurgeOnStart,
	})
	reaper.SetLogger(log.Component("reaper"))

	server, err := api.New(api.Deps{
		Config:        cfg.API,
		Logger:        log.Component("api"),
		Notifications: svc,
		Devices:       registry,
		Sweeper:       reaper,
		Audit:         audit.NewSQLiteRepository(db.DB),
		DB:            db,
		MQTT:          mqttClient,
		InfluxDB:      influxClient,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reaper.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	if link != nil {
		link.SetClaimer(svc)
		g.Go(func() error { return link.Run(gctx) })
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"pending_ttl", cfg.Notifications.PendingTTL,
		"delivered_ttl", cfg.Notifications.DeliveredTTL,
		"purge_interval", cfg.Notifications.PurgeInterval,
	)

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Gray Logic Notify stopped")
	return nil
}

// startDeviceRegistry seeds configured aliases into the device store.
func startDeviceRegistry(ctx context.Context, cfg *config.Config, db *database.DB, log *logging.Logger) (*device.Registry, error) {
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))

	for _, d := range cfg.Devices {
		if err := registry.Register(ctx, &device.Device{
			ID:        d.ID,
			Number:    d.Number,
			OldNumber: d.OldNumber,
		}); err != nil {
			return nil, fmt.Errorf("seeding device %q: %w", d.ID, err)
		}
	}

	devices, err := registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading device registry: %w", err)
	}
	log.Info("device registry initialised", "seeded", len(cfg.Devices), "devices", len(devices))
	return registry, nil
}

// getConfigPath returns the configuration file path from environment or default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every connected dependency before serving.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
