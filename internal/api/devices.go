package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-notify/internal/audit"
	"github.com/nerrad567/gray-logic-notify/internal/device"
)

// DeviceRequest is the body of PUT /devices/{device}. The path segment is
// the device ID.
type DeviceRequest struct {
	Number    string `json:"number"`
	OldNumber string `json:"old_number"`
}

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a device by ID or by either of its numbers.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := s.devices.Resolve(ctx, chi.URLParam(r, "device"))
	if err != nil {
		writeDomainError(w, err, "failed to resolve device")
		return
	}

	dev, err := s.devices.Get(ctx, id)
	if err != nil {
		writeDomainError(w, err, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handlePutDevice creates or replaces a device's aliases.
func (s *Server) handlePutDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev := &device.Device{
		ID:        chi.URLParam(r, "device"),
		Number:    req.Number,
		OldNumber: req.OldNumber,
	}
	if err := s.devices.Register(r.Context(), dev); err != nil {
		writeDomainError(w, err, "failed to register device")
		return
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionDeviceRegister,
		EntityType: audit.EntityDevice,
		EntityID:   dev.ID,
		Details:    map[string]any{"number": dev.Number, "old_number": dev.OldNumber},
	})

	stored, err := s.devices.Get(r.Context(), dev.ID)
	if err != nil {
		writeDomainError(w, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handleDeleteDevice removes a device and its aliases. Queued messages are
// left for the purge.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")
	if err := s.devices.Unregister(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete device")
		return
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionDeviceUnregister,
		EntityType: audit.EntityDevice,
		EntityID:   id,
	})
	w.WriteHeader(http.StatusNoContent)
}
