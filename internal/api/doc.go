// Package api provides the HTTP REST API and WebSocket presence server
// for the GymHub back office.
//
// It exposes the session endpoints (login, refresh, logout, me), the
// operator directory, and the presence channel that tells every
// connected operator who else is online.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
