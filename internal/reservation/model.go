// Package reservation is the conflict-checked write path for operating-room
// bookings. Reads come from the published reservations sheet; writes land in
// a durable local JSON fallback first and are forwarded best-effort to the
// authoritative remote endpoint.
package reservation

import (
	"errors"
	"time"
)

// ErrConflict is returned when a requested interval overlaps an existing
// reservation, whether detected locally or reported by the remote endpoint.
var ErrConflict = errors.New("reservation: interval already booked")

// Reservation is an immutable booking record. The JSON tags match the wire
// format shared with the remote endpoint and the local fallback file.
type Reservation struct {
	ID          string    `json:"id"`
	RoomID      int       `json:"or_id"`
	DoctorID    int       `json:"doctor_id"`
	ProcedureID int       `json:"procedure_id"`
	Start       time.Time `json:"start_iso"`
	End         time.Time `json:"end_iso"`
}

// Hydrated is a reservation with display names attached for replies.
type Hydrated struct {
	Reservation
	RoomName      string
	ProcedureName string
}

// CreateParams carries the fields for a new reservation; the id is assigned
// by the repository.
type CreateParams struct {
	RoomID      int
	DoctorID    int
	ProcedureID int
	Start       time.Time
	End         time.Time
}
