package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/medagenda/or-assistant/internal/directory"
	"github.com/medagenda/or-assistant/internal/schedule"
	"github.com/medagenda/or-assistant/pkg/logging"
)

const reservationsCacheKey = "reservations"

// Repository reads reservations from the published sheet and writes through
// the local fallback plus the best-effort remote forward.
type Repository struct {
	sheets   *directory.SheetClient
	cache    *directory.Cache
	sheetURL string
	catalogs *directory.Service
	local    *LocalStore
	remote   *RemoteClient
	loc      *time.Location
	logger   *logging.Logger
}

// NewRepository wires the read and write paths together. remote may be nil
// (remote forwarding disabled).
func NewRepository(sheets *directory.SheetClient, cache *directory.Cache, sheetURL string, catalogs *directory.Service, local *LocalStore, remote *RemoteClient, loc *time.Location, logger *logging.Logger) *Repository {
	if sheets == nil {
		panic("reservation: sheet client required")
	}
	if local == nil {
		panic("reservation: local store required")
	}
	if cache == nil {
		cache = directory.NewCache(0)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{
		sheets:   sheets,
		cache:    cache,
		sheetURL: sheetURL,
		catalogs: catalogs,
		local:    local,
		remote:   remote,
		loc:      loc,
		logger:   logger,
	}
}

// fetchAll loads every reservation row from the sheet. Display reads may be
// served from the short-TTL cache; conflict checks must not be.
func (r *Repository) fetchAll(ctx context.Context, cached bool) ([]Reservation, error) {
	if cached {
		if rows, ok := r.cache.Fresh(reservationsCacheKey); ok {
			return mapRows(rows), nil
		}
	}
	rows, err := r.sheets.Fetch(ctx, directory.ToCSVURL(r.sheetURL))
	if err != nil {
		if cached {
			if stale, ok := r.cache.Stale(reservationsCacheKey); ok {
				r.logger.Warn("serving stale reservations snapshot", "error", err)
				return mapRows(stale), nil
			}
		}
		return nil, fmt.Errorf("reservation: fetch sheet: %w", err)
	}
	r.cache.Put(reservationsCacheKey, rows)
	return mapRows(rows), nil
}

func mapRows(rows []directory.Row) []Reservation {
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		rec := Reservation{
			ID:          row["id"],
			RoomID:      atoi(pick(row, "or_id", "quirofano_id")),
			DoctorID:    atoi(row["doctor_id"]),
			ProcedureID: atoi(pick(row, "procedure_id", "procedimiento_id")),
		}
		rec.Start = parseISO(row["start_iso"])
		rec.End = parseISO(row["end_iso"])
		if rec.ID == "" || rec.Start.IsZero() || rec.End.IsZero() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ListForDoctor returns the doctor's reservations sorted ascending by start,
// optionally bounded by from/to. Display path: the cache may serve it.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID int, from, to *time.Time) ([]Reservation, error) {
	all, err := r.fetchAll(ctx, true)
	if err != nil {
		return nil, err
	}
	var items []Reservation
	for _, rec := range all {
		if rec.DoctorID != doctorID {
			continue
		}
		if from != nil && rec.Start.Before(*from) {
			continue
		}
		if to != nil && rec.Start.After(*to) {
			continue
		}
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })
	return items, nil
}

// ListForRoomOnDate returns the room's reservations whose start falls on the
// given clinic-local day. Always bypasses the cache.
func (r *Repository) ListForRoomOnDate(ctx context.Context, roomID int, day time.Time) ([]Reservation, error) {
	all, err := r.fetchAll(ctx, false)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := schedule.DayBounds(day, r.loc)
	var items []Reservation
	for _, rec := range all {
		if rec.RoomID != roomID {
			continue
		}
		if rec.Start.Before(dayStart) || rec.Start.After(dayEnd) {
			continue
		}
		items = append(items, rec)
	}
	return items, nil
}

// WindowsForRoomOnDate adapts ListForRoomOnDate for the availability engine.
func (r *Repository) WindowsForRoomOnDate(ctx context.Context, roomID int, day time.Time) ([]schedule.Window, error) {
	items, err := r.ListForRoomOnDate(ctx, roomID, day)
	if err != nil {
		return nil, err
	}
	windows := make([]schedule.Window, len(items))
	for i, rec := range items {
		windows[i] = schedule.Window{Start: rec.Start, End: rec.End}
	}
	return windows, nil
}

// Create re-validates against current bookings and persists the reservation.
// The overlap check is the raw open interval: the cleanup buffer is an
// availability concern, not a storage invariant.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*Reservation, error) {
	existing, err := r.ListForRoomOnDate(ctx, p.RoomID, p.Start.In(r.loc))
	if err != nil {
		return nil, fmt.Errorf("reservation: conflict check: %w", err)
	}
	for _, rec := range existing {
		if p.Start.Before(rec.End) && rec.Start.Before(p.End) {
			return nil, ErrConflict
		}
	}

	rec := Reservation{
		ID:          uuid.NewString(),
		RoomID:      p.RoomID,
		DoctorID:    p.DoctorID,
		ProcedureID: p.ProcedureID,
		Start:       p.Start,
		End:         p.End,
	}

	if err := r.local.Append(rec); err != nil {
		r.logger.Error("local reservation persist failed", "id", rec.ID, "error", err)
	}

	if r.remote != nil {
		if err := r.remote.Push(ctx, rec); err != nil {
			if errors.Is(err, ErrConflict) {
				// The remote is the long-term source of truth; drop the
				// fallback copy so a rejected booking does not linger.
				if _, rmErr := r.local.Remove(rec.ID); rmErr != nil {
					r.logger.Error("local rollback failed after remote conflict", "id", rec.ID, "error", rmErr)
				}
				return nil, ErrConflict
			}
			r.logger.Error("remote reservation push failed, continuing on local fallback", "id", rec.ID, "error", err)
		}
	}

	return &rec, nil
}

// Cancel removes the reservation locally if present and forwards the
// cancellation best-effort. Unknown ids complete as a no-op.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	removed, err := r.local.Remove(id)
	if err != nil {
		r.logger.Error("local reservation removal failed", "id", id, "error", err)
	} else if !removed {
		r.logger.Debug("reservation not in local store", "id", id)
	}
	if r.remote != nil {
		if err := r.remote.Cancel(ctx, id); err != nil {
			r.logger.Error("remote cancel failed", "id", id, "error", err)
		}
	}
	return nil
}

// Hydrate attaches room and procedure display names for replies. Unknown
// ids get placeholder labels rather than failing the listing.
func (r *Repository) Hydrate(ctx context.Context, items []Reservation) ([]Hydrated, error) {
	rooms, err := r.catalogs.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	procs, err := r.catalogs.ListProcedures(ctx)
	if err != nil {
		return nil, err
	}
	roomNames := make(map[int]string, len(rooms))
	for _, room := range rooms {
		roomNames[room.ID] = room.Name
	}
	procNames := make(map[int]string, len(procs))
	for _, proc := range procs {
		procNames[proc.ID] = proc.Name
	}

	out := make([]Hydrated, len(items))
	for i, rec := range items {
		h := Hydrated{Reservation: rec}
		if name, ok := roomNames[rec.RoomID]; ok {
			h.RoomName = name
		} else {
			h.RoomName = fmt.Sprintf("Qx-%d", rec.RoomID)
		}
		if name, ok := procNames[rec.ProcedureID]; ok {
			h.ProcedureName = name
		} else {
			h.ProcedureName = fmt.Sprintf("Proc %d", rec.ProcedureID)
		}
		out[i] = h
	}
	return out, nil
}

func parseISO(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func pick(row directory.Row, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
