package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-notify/internal/audit"
)

// handlePurge runs one purge sweep with the configured TTLs and reports
// what was deleted.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	result, err := s.sweeper.RunOnce(r.Context())
	if err != nil {
		writeDomainError(w, err, "purge failed")
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionQueuePurge,
		EntityType: audit.EntityQueue,
		Details: map[string]any{
			"pending_deleted":   result.PendingDeleted,
			"delivered_deleted": result.DeliveredDeleted,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"pending_deleted":   result.PendingDeleted,
		"delivered_deleted": result.DeliveredDeleted,
		"total":             result.Total(),
		"pending_cutoff":    result.PendingCutoff,
		"delivered_cutoff":  result.DeliveredCutoff,
	})
}
