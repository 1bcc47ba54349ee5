package api

import (
	"net/http"
	"strconv"

	"github.com/gymhub/backoffice-core/internal/audit"
)

// handleListSessionEvents returns the session trail, newest first.
// Restricted to administrators by the router. Query parameters:
// action, operatorId, limit, offset.
func (s *Server) handleListSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "session trail is not enabled")
		return
	}

	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		OperatorID: r.URL.Query().Get("operatorId"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing session events failed", "error", err)
		writeInternalError(w, "failed to list session events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
