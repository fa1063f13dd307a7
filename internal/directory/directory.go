package directory

import (
	"context"
	"strconv"

	"github.com/medagenda/or-assistant/internal/phone"
	"github.com/medagenda/or-assistant/pkg/logging"
)

// URLs groups the published catalog sheets.
type URLs struct {
	Doctors    string
	Rooms      string
	Procedures string
}

// Service reads the reference catalogs through the TTL cache.
type Service struct {
	client *SheetClient
	cache  *Cache
	urls   URLs
	logger *logging.Logger
}

// NewService creates a directory service.
func NewService(client *SheetClient, cache *Cache, urls URLs, logger *logging.Logger) *Service {
	if client == nil {
		panic("directory: sheet client required")
	}
	if cache == nil {
		cache = NewCache(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{client: client, cache: cache, urls: urls, logger: logger}
}

// rows serves a catalog from cache, refreshing when expired. A failed
// refresh degrades to the last good snapshot when one exists.
func (s *Service) rows(ctx context.Context, key, url string) ([]Row, error) {
	if rows, ok := s.cache.Fresh(key); ok {
		return rows, nil
	}
	rows, err := s.client.Fetch(ctx, ToCSVURL(url))
	if err != nil {
		if stale, ok := s.cache.Stale(key); ok {
			s.logger.Warn("serving stale catalog snapshot", "catalog", key, "error", err)
			return stale, nil
		}
		return nil, err
	}
	s.cache.Put(key, rows)
	return rows, nil
}

// GetDoctorByPhone looks up a doctor by normalized E.164 phone.
// Returns (nil, nil) when no directory row matches.
func (s *Service) GetDoctorByPhone(ctx context.Context, e164 string) (*Doctor, error) {
	target := phone.NormalizeMX(e164)
	rows, err := s.rows(ctx, "doctors", s.urls.Doctors)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		raw := pickPhone(row)
		if raw == "" || phone.NormalizeMX(raw) != target {
			continue
		}
		return &Doctor{
			ID:        atoi(row["id"]),
			Name:      pick(row, "nombre", "name"),
			Phone:     phone.NormalizeMX(raw),
			Specialty: pick(row, "especialidad", "specialty"),
		}, nil
	}
	return nil, nil
}

// ListProcedures returns procedures with a non-empty id and name and a
// positive duration.
func (s *Service) ListProcedures(ctx context.Context) ([]Procedure, error) {
	rows, err := s.rows(ctx, "procedures", s.urls.Procedures)
	if err != nil {
		return nil, err
	}
	procs := make([]Procedure, 0, len(rows))
	for _, row := range rows {
		p := Procedure{
			ID:          atoi(row["id"]),
			Name:        pick(row, "nombre", "name"),
			DurationMin: atoi(pick(row, "duracion_min", "duration_min")),
		}
		if p.ID != 0 && p.Name != "" && p.DurationMin > 0 {
			procs = append(procs, p)
		}
	}
	return procs, nil
}

// ListRooms returns operating rooms with a non-empty id and name.
func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.rows(ctx, "rooms", s.urls.Rooms)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(rows))
	for _, row := range rows {
		r := Room{
			ID:       atoi(row["id"]),
			Name:     pick(row, "nombre", "name"),
			Location: pick(row, "piso", "location"),
		}
		if r.ID != 0 && r.Name != "" {
			rooms = append(rooms, r)
		}
	}
	return rooms, nil
}

// pickPhone tolerates the header variants the sheet has accumulated.
func pickPhone(row Row) string {
	return pick(row,
		"telefono", "teléfono",
		"telefono e164", "teléfono e164", "telefono_e164",
		"phone")
}

func pick(row Row, keys ...string) string {
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
