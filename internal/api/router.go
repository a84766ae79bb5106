package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency probe in handleHealth.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Producer endpoints
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", s.handleSendNotification)
			r.Get("/stats", s.handleNotificationStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetNotification)
				r.Get("/status", s.handleGetNotificationStatus)
			})
		})

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{device}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handlePutDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/claim", s.handleClaim)
			})
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/purge", s.handlePurge)
		})

		r.Get("/audit", s.handleListAudit)
	})

	return r
}

// handleHealth returns the server health status. The database is required;
// MQTT and InfluxDB are reported but only degrade the status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	checks := map[string]string{}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.db.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks["database"] = err.Error()
			status = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	if s.influx != nil {
		if s.influx.IsConnected() {
			checks["influxdb"] = "ok"
		} else {
			checks["influxdb"] = "disconnected"
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
