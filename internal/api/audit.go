package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-notify/internal/audit"
)

// auditSource marks entries written by the HTTP API.
const auditSource = "api"

// recordAudit writes an audit entry for an administrative action. Failures
// are logged; the action itself has already succeeded.
func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.audit == nil {
		return
	}
	e.Source = auditSource
	e.RequestID = requestID(r.Context())
	if err := s.audit.Create(r.Context(), &e); err != nil {
		s.logger.Warn("failed to record audit entry",
			"action", e.Action,
			"entity_id", e.EntityID,
			"error", err,
		)
	}
}

// handleListAudit returns audit entries, most recent first.
//
// Query parameters:
//   - action, entity_type, entity_id: exact-match filters
//   - limit (default 50, max 200), offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeBadRequest(w, name+" must be an integer")
				return
			}
			*dst = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
