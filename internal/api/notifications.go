package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// SendRequest is the body of POST /notifications.
type SendRequest struct {
	// Device is the device ID, current number or legacy number.
	Device  string `json:"device"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// handleSendNotification enqueues a message for a device.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Device == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "device is required")
		return
	}

	id, err := s.notifications.Send(r.Context(), req.Device, req.Type, req.Payload)
	if err != nil {
		s.logger.Warn("send failed",
			"device", req.Device,
			"type", req.Type,
			"error", err,
			"request_id", requestID(r.Context()),
		)
		writeDomainError(w, err, "failed to enqueue notification")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleGetNotification returns the full stored record.
func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	msg, err := s.notifications.Message(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get notification")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// handleGetNotificationStatus returns {id, status} or 404 for an unknown or
// purged id.
func (s *Server) handleGetNotificationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	status, found, err := s.notifications.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get notification status")
		return
	}
	if !found {
		writeNotFound(w, "notification not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

// handleNotificationStats returns queue counts by status.
func (s *Server) handleNotificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.notifications.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to get notification stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleClaim claims every pending message for the device in the path.
// The response is the only copy of the claimed messages.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "device")

	deliveries, err := s.notifications.ClaimPending(r.Context(), target)
	if err != nil {
		writeDomainError(w, err, "failed to claim notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": deliveries, "count": len(deliveries)})
}

// parseID reads the numeric {id} path parameter, writing a 400 on failure.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
