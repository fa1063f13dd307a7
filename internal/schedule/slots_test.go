package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var cdmx = mustLoad("America/Mexico_City")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, cdmx)
}

func TestEmptyDaySlotCount(t *testing.T) {
	start, end := DayBounds(day(2025, time.October, 29), cdmx)
	slots := windows(start, end, 60*time.Minute, 10*time.Minute, nil)

	// 1439 usable minutes in 70-minute blocks: 20 full blocks fit before
	// the buffered end passes 23:59.
	require.Len(t, slots, 20)
	require.Equal(t, "00:00 – 01:00", slots[0].Label)
	require.Equal(t, "22:10 – 23:10", slots[19].Label)
}

func TestSlotsHaveExactDuration(t *testing.T) {
	start, end := DayBounds(day(2025, time.October, 29), cdmx)
	for _, dur := range []time.Duration{30 * time.Minute, 45 * time.Minute, 2 * time.Hour} {
		for _, s := range windows(start, end, dur, 10*time.Minute, nil) {
			require.Equal(t, dur, s.End.Sub(s.Start))
		}
	}
}

func TestSlotsNeverOverlapEachOtherOrBufferedBusy(t *testing.T) {
	d := day(2025, time.November, 3)
	start, end := DayBounds(d, cdmx)
	buffer := 10 * time.Minute
	busy := []Window{
		{Start: d.Add(8 * time.Hour), End: d.Add(9*time.Hour + 30*time.Minute)},
		{Start: d.Add(14 * time.Hour), End: d.Add(15 * time.Hour)},
	}

	slots := windows(start, end, 90*time.Minute, buffer, busy)
	require.NotEmpty(t, slots)

	for i, a := range slots {
		for _, b := range slots[i+1:] {
			require.False(t, overlaps(a.Start, a.End, b.Start, b.End),
				"slots %s and %s overlap", a.Label, b.Label)
		}
		for _, w := range busy {
			require.False(t, overlaps(a.Start, a.End, w.Start, w.End.Add(buffer)),
				"slot %s overlaps buffered reservation at %s", a.Label, w.Start)
		}
	}
}

func TestBusyBlockRemovesCoveredCandidates(t *testing.T) {
	d := day(2025, time.October, 29)
	start, end := DayBounds(d, cdmx)
	free := windows(start, end, 60*time.Minute, 10*time.Minute, nil)

	// An 08:00–12:00 surgery plus its buffer swallows every candidate that
	// touches the morning block.
	busy := []Window{{Start: d.Add(8 * time.Hour), End: d.Add(12 * time.Hour)}}
	got := windows(start, end, 60*time.Minute, 10*time.Minute, busy)
	require.Less(t, len(got), len(free))
	for _, s := range got {
		require.False(t, overlaps(s.Start, s.End, busy[0].Start, busy[0].End.Add(10*time.Minute)))
	}
}

func TestChronologicalOrder(t *testing.T) {
	start, end := DayBounds(day(2025, time.December, 1), cdmx)
	slots := windows(start, end, 40*time.Minute, 10*time.Minute, nil)
	for i := 1; i < len(slots); i++ {
		require.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

type stubSource struct {
	windows []Window
	err     error
	gotRoom int
}

func (s *stubSource) WindowsForRoomOnDate(_ context.Context, roomID int, _ time.Time) ([]Window, error) {
	s.gotRoom = roomID
	return s.windows, s.err
}

func TestServiceAvailableSlots(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, cdmx, 10)

	slots, err := svc.AvailableSlots(context.Background(), 2, day(2025, time.October, 29), 60)
	require.NoError(t, err)
	require.Len(t, slots, 20)
	require.Equal(t, 2, src.gotRoom)
}

func TestServiceRejectsNonPositiveDuration(t *testing.T) {
	svc := NewService(&stubSource{}, cdmx, 10)
	_, err := svc.AvailableSlots(context.Background(), 1, day(2025, time.October, 29), 0)
	require.Error(t, err)
}
