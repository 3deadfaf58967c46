// Package api provides the HTTP REST API and WebSocket server for Relay Core.
//
// It exposes login/logout, device listing and control, and user management to
// web clients, and pushes device state changes to WebSocket subscribers so
// panels never have to poll.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// All mutating endpoints require a session token, presented either as a
// "relaycore_session" cookie or an "Authorization: Bearer" header. The
// session and permission checks live in internal/core and internal/auth; the
// handlers here only translate HTTP to service calls and errors to status
// codes.
package api
