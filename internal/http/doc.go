// Package http provides the kiosk's HTTP handlers and middleware.
//
// The router exposes the following endpoints:
//   - POST /checkins: registers a visitor arrival. Body: the `checkInRequest`
//     payload defined in visit_handler.go. Responds 201 with a confirmation
//     that carries the notification delivery status.
//   - POST /late-checkins: records a late employee arrival. Body:
//     {"full_name","reason_for_late"}. Responds 201.
//   - POST /checkouts: closes the active visit matching the submitted search
//     text. Body: {"query"}. Responds 200, or 404 when no active visit
//     matches.
//   - GET /visitors/active: lists visits that are currently on site.
//
// Request/response DTOs live alongside their handler so tests and
// documentation share the same ground truth.
package http
