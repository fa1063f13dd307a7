// Package schedule computes bookable operating-room windows for a calendar
// day, honoring a fixed cleanup buffer after existing reservations.
package schedule

import (
	"fmt"
	"time"
)

// DefaultBufferMin is the cleanup/prep margin enforced after an existing
// reservation, in minutes.
const DefaultBufferMin = 10

// Slot is an ephemeral bookable window. Slots are computed per turn and
// never persisted; the label carries the clinic-local times.
type Slot struct {
	Label string    `json:"label"`
	Start time.Time `json:"start_iso"`
	End   time.Time `json:"end_iso"`
}

// Window is an occupied interval, typically an existing reservation.
type Window struct {
	Start time.Time
	End   time.Time
}

// overlaps reports open-interval overlap: touching endpoints do not collide.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// windows generates candidate slots between dayStart and dayEnd.
//
// Existing busy windows are extended forward by the buffer so the cleanup
// margin is blocked too. Candidates are stepped by duration+buffer from
// dayStart; a candidate is dropped when its buffered end would pass dayEnd
// or when it overlaps a buffered busy block. The buffer is deliberately not
// applied to the candidates themselves beyond the day-end cutoff; the step
// size already spaces consecutive generated slots.
func windows(dayStart, dayEnd time.Time, duration, buffer time.Duration, busy []Window) []Slot {
	occupied := make([]Window, len(busy))
	for i, b := range busy {
		occupied[i] = Window{Start: b.Start, End: b.End.Add(buffer)}
	}

	var slots []Slot
	step := duration + buffer
	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		end := t.Add(duration)
		if end.Add(buffer).After(dayEnd) {
			continue
		}
		blocked := false
		for _, b := range occupied {
			if overlaps(t, end, b.Start, b.End) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		slots = append(slots, Slot{
			Label: fmt.Sprintf("%s – %s", t.Format("15:04"), end.Format("15:04")),
			Start: t,
			End:   end,
		})
	}
	return slots
}

// DayBounds returns the clinic-local day boundaries for day: midnight and
// 23:59.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, loc)
	return start, end
}
