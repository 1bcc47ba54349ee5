package api

import (
	"net/http"
)

// operatorSummary is the directory listing shape. Credential fields
// never leave the auth package; this mirrors the rest of the record.
type operatorSummary struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"isActive"`
}

// handleListOperators returns the full operator directory.
// Restricted to administrators by the router.
func (s *Server) handleListOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := s.operators.List(r.Context())
	if err != nil {
		s.logger.Error("listing operators failed", "error", err)
		writeInternalError(w, "failed to list operators")
		return
	}

	out := make([]operatorSummary, 0, len(ops))
	for i := range ops {
		op := &ops[i]
		out = append(out, operatorSummary{
			UserID:      op.ID,
			Email:       op.Email,
			DisplayName: op.DisplayName,
			AvatarRef:   op.AvatarRef,
			Role:        string(op.Role),
			IsActive:    op.IsActive,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"operators": out,
		"count":     len(out),
	})
}
