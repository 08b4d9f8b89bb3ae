// Package repository stores courts and reservations for the development
// backend.  The sentinel errors below let higher layers such as handlers
// distinguish between failure scenarios.  For example, ErrConflict signals
// that a slot is already held by another reservation, while
// ErrReservationNotFound means the id is unknown.
package repository

import "errors"

// ErrCourtNotFound is returned when a court id is unknown.  Handlers
// should translate this into an HTTP 404 response.
var ErrCourtNotFound = errors.New("court not found")

// ErrReservationNotFound is returned when a reservation id is unknown.
// Handlers should translate this into an HTTP 404 response.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConflict is returned when a reservation cannot be stored because
// another reservation already holds the same court and start time.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
