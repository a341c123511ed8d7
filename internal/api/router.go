package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
// Mounting the resource routers constructs their scope gates, which
// populates the scope registry consumed by the identity bootstrap.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Unauthenticated endpoints
	r.Get("/health", s.handleHealth)
	r.Post("/token", s.handleToken)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// WS ticket requires authentication - user must hold a valid
		// token to request a ticket
		r.Post("/auth/ws-ticket", s.handleWSTicket)

		r.Route("/users", s.mountUserRoutes)
		r.Route("/roles", s.mountRoleRoutes)
		r.Route("/scopes", s.mountScopeRoutes)
		r.Route("/devices", s.mountDeviceRoutes)
	})

	// WebSocket (auth via single-use ticket, validated in handler)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
