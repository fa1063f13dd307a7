// Package directory exposes the clinic reference catalogs — doctors,
// procedures, and operating rooms — published as Google Sheets CSV exports.
// Catalogs are snapshots: reads are served from a short-lived cache and fall
// back to the last good snapshot when a refresh fails.
package directory

// Doctor is a row of the doctor directory. Doctors are identified on the
// messaging channel by their normalized E.164 phone.
type Doctor struct {
	ID        int
	Name      string
	Phone     string
	Specialty string
}

// Procedure is a clinical service type with a fixed expected duration.
type Procedure struct {
	ID          int
	Name        string
	DurationMin int
}

// Room is a bookable operating room.
type Room struct {
	ID       int
	Name     string
	Location string
}
