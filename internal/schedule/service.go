package schedule

import (
	"context"
	"fmt"
	"time"
)

// ReservationSource supplies the occupied windows for a room on a day.
// Implementations must bypass caches: availability feeds booking decisions.
type ReservationSource interface {
	WindowsForRoomOnDate(ctx context.Context, roomID int, day time.Time) ([]Window, error)
}

// Service composes the reservation source with the pure window generator.
type Service struct {
	source ReservationSource
	loc    *time.Location
	buffer time.Duration
}

// NewService creates the availability service. bufferMin <= 0 falls back to
// DefaultBufferMin.
func NewService(source ReservationSource, loc *time.Location, bufferMin int) *Service {
	if source == nil {
		panic("schedule: reservation source required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if bufferMin <= 0 {
		bufferMin = DefaultBufferMin
	}
	return &Service{
		source: source,
		loc:    loc,
		buffer: time.Duration(bufferMin) * time.Minute,
	}
}

// AvailableSlots returns the full ordered list of bookable windows for the
// room on the given day. Callers truncate for display.
func (s *Service) AvailableSlots(ctx context.Context, roomID int, day time.Time, durationMin int) ([]Slot, error) {
	if durationMin <= 0 {
		return nil, fmt.Errorf("schedule: duration must be positive, got %d", durationMin)
	}
	busy, err := s.source.WindowsForRoomOnDate(ctx, roomID, day)
	if err != nil {
		return nil, fmt.Errorf("schedule: load reservations: %w", err)
	}
	dayStart, dayEnd := DayBounds(day, s.loc)
	return windows(dayStart, dayEnd, time.Duration(durationMin)*time.Minute, s.buffer, busy), nil
}

// Buffer exposes the configured cleanup margin.
func (s *Service) Buffer() time.Duration {
	return s.buffer
}
