// Package api implements the HTTP REST API and WebSocket server for the
// access-control service.
//
// This package provides:
//   - Token login and refresh, signup, and the current-user endpoint
//   - CRUD and relational reads for users, roles, buildings, floors, rooms,
//     access rules, access logs and current presence
//   - A WebSocket hub streaming presence changes and access log entries
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     bearer authentication, admin gate)
//
// # Security
//
// Protected routes need an RS256 access token for an active user.
// Mutations of the building model need an admin. Refresh tokens are only
// accepted by /auth/refresh. WebSocket connections use single-use tickets
// from /auth/ws-ticket so tokens never appear in URLs.
//
// # Errors
//
// Handlers return apperr errors; writeAppError maps them onto
// {"status","code","message"} with the kind's HTTP status.
package api
