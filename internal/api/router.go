package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gymhub/backoffice-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Session endpoints (no bearer token required; refresh and
		// logout authenticate via the rotation cookie)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// Presence channel. Browsers cannot set headers on WebSocket
		// upgrades, so the handshake verifies the access token from
		// the query string itself rather than via authMiddleware.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			// Administrator surfaces
			r.Group(func(r chi.Router) {
				r.Use(s.requireRoles(auth.RoleAdministrator))

				r.Get("/operators", s.handleListOperators)
				r.Get("/audit", s.handleListSessionEvents)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
