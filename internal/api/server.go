package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-notify/internal/audit"
	"github.com/nerrad567/gray-logic-notify/internal/device"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-notify/internal/notification"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Sweeper runs one purge sweep with the configured TTLs.
// *notification.Reaper implements it.
type Sweeper interface {
	RunOnce(ctx context.Context) (notification.PurgeResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	Logger        *logging.Logger
	Notifications *notification.Service
	Devices       *device.Registry
	Sweeper       Sweeper
	Audit         audit.Repository // optional: records administrative actions
	DB            *database.DB     // optional: health and pool metrics
	MQTT          *mqtt.Client     // optional
	InfluxDB      *influxdb.Client // optional
	Version       string
}

// Server is the HTTP API server for Gray Logic Notify.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	logger        *logging.Logger
	notifications *notification.Service
	devices       *device.Registry
	sweeper       Sweeper
	audit         audit.Repository
	db            *database.DB
	mqtt          *mqtt.Client
	influx        *influxdb.Client
	version       string
	startTime     time.Time
	server        *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, notification service,
//     device registry, sweeper)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}

	return &Server{
		cfg:           deps.Config,
		logger:        deps.Logger,
		notifications: deps.Notifications,
		devices:       deps.Devices,
		sweeper:       deps.Sweeper,
		audit:         deps.Audit,
		db:            deps.DB,
		mqtt:          deps.MQTT,
		influx:        deps.InfluxDB,
		version:       deps.Version,
		startTime:     time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
