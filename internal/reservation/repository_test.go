package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medagenda/or-assistant/internal/directory"
)

var cdmx = func() *time.Location {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fakeBackend plays both the published reservations sheet and the remote
// booking endpoint, the way the production pair behaves: accepted pushes
// show up in subsequent sheet reads.
type fakeBackend struct {
	mu            sync.Mutex
	recs          []Reservation
	sheetDown     bool
	forceConflict bool
	remoteStatus  int
	pushes        int
	cancels       []string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sheet", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.sheetDown {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintln(w, "id,or_id,doctor_id,procedure_id,start_iso,end_iso")
		for _, rec := range b.recs {
			fmt.Fprintf(w, "%s,%d,%d,%d,%s,%s\n", rec.ID, rec.RoomID, rec.DoctorID, rec.ProcedureID,
				rec.Start.Format(time.RFC3339), rec.End.Format(time.RFC3339))
		}
	})
	mux.HandleFunc("/exec", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.URL.Query().Get("action") == "cancel" {
			var req struct {
				ID string `json:"id"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			b.cancels = append(b.cancels, req.ID)
			kept := b.recs[:0]
			for _, rec := range b.recs {
				if rec.ID != req.ID {
					kept = append(kept, rec)
				}
			}
			b.recs = kept
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
			return
		}
		b.pushes++
		if b.remoteStatus != 0 {
			w.WriteHeader(b.remoteStatus)
			return
		}
		var rec Reservation
		_ = json.NewDecoder(r.Body).Decode(&rec)
		if b.forceConflict {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "conflict": true})
			return
		}
		for _, existing := range b.recs {
			if existing.RoomID == rec.RoomID && rec.Start.Before(existing.End) && existing.Start.Before(rec.End) {
				json.NewEncoder(w).Encode(map[string]any{"ok": false, "conflict": true})
				return
			}
		}
		b.recs = append(b.recs, rec)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "id,nombre,piso\n1,Quirófano A,Piso 2\n")
	})
	mux.HandleFunc("/procedures", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "id,nombre,duracion_min\n2,Colecistectomía,90\n")
	})
	mux.HandleFunc("/doctors", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "id,nombre,telefono\n7,Dra. Ruiz,+525511112222\n")
	})
	return mux
}

func newTestRepository(t *testing.T, b *fakeBackend, withRemote bool) *Repository {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	sheets := directory.NewSheetClient(2*time.Second, nil)
	catalogs := directory.NewService(sheets, directory.NewCache(time.Minute), directory.URLs{
		Doctors:    srv.URL + "/doctors",
		Rooms:      srv.URL + "/rooms",
		Procedures: srv.URL + "/procedures",
	}, nil)
	local := NewLocalStore(filepath.Join(t.TempDir(), "reservas.json"))
	var remote *RemoteClient
	if withRemote {
		remote = NewRemoteClient(srv.URL+"/exec", 2*time.Second, 2*time.Second, nil)
	}
	return NewRepository(sheets, directory.NewCache(0), srv.URL+"/sheet", catalogs, local, remote, cdmx, nil)
}

func at(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, cdmx)
}

func TestListForDoctorSortedAndBounded(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{recs: []Reservation{
		{ID: "late", RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: at(day, 16, 0), End: at(day, 17, 0)},
		{ID: "early", RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: at(day, 8, 0), End: at(day, 9, 0)},
		{ID: "other-doc", RoomID: 1, DoctorID: 9, ProcedureID: 2, Start: at(day, 10, 0), End: at(day, 11, 0)},
	}}
	repo := newTestRepository(t, b, false)

	items, err := repo.ListForDoctor(context.Background(), 7, nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "early", items[0].ID)
	require.Equal(t, "late", items[1].ID)

	from := at(day, 12, 0)
	items, err = repo.ListForDoctor(context.Background(), 7, &from, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "late", items[0].ID)
}

func TestListForRoomOnDateFiltersByDay(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	next := day.AddDate(0, 0, 1)
	b := &fakeBackend{recs: []Reservation{
		{ID: "today", RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: at(day, 8, 0), End: at(day, 9, 0)},
		{ID: "tomorrow", RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: at(next, 8, 0), End: at(next, 9, 0)},
		{ID: "other-room", RoomID: 3, DoctorID: 7, ProcedureID: 2, Start: at(day, 10, 0), End: at(day, 11, 0)},
	}}
	repo := newTestRepository(t, b, false)

	items, err := repo.ListForRoomOnDate(context.Background(), 1, day)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "today", items[0].ID)
}

func TestCreatePersistsLocallyAndForwards(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{}
	repo := newTestRepository(t, b, true)

	rec, err := repo.Create(context.Background(), CreateParams{
		RoomID: 1, DoctorID: 7, ProcedureID: 2,
		Start: at(day, 8, 0), End: at(day, 9, 30),
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	local, err := repo.local.List()
	require.NoError(t, err)
	require.Len(t, local, 1)
	require.Equal(t, rec.ID, local[0].ID)
	require.Equal(t, 1, b.pushes)
}

func TestCreateConflictDetectedAgainstSheet(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{recs: []Reservation{
		{ID: "busy", RoomID: 1, DoctorID: 9, ProcedureID: 2, Start: at(day, 8, 0), End: at(day, 10, 0)},
	}}
	repo := newTestRepository(t, b, true)

	_, err := repo.Create(context.Background(), CreateParams{
		RoomID: 1, DoctorID: 7, ProcedureID: 2,
		Start: at(day, 9, 0), End: at(day, 10, 30),
	})
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, 0, b.pushes, "conflicting create must not reach the remote")

	local, err := repo.local.List()
	require.NoError(t, err)
	require.Empty(t, local)
}

func TestOverlappingCreatesYieldOneSuccessOneConflict(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{}
	repo := newTestRepository(t, b, true)
	ctx := context.Background()

	params := CreateParams{RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: at(day, 8, 0), End: at(day, 9, 30)}

	first, err := repo.Create(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = repo.Create(ctx, params)
	require.ErrorIs(t, err, ErrConflict)
}

func TestRemoteConflictRollsBackLocalCopy(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{forceConflict: true}
	repo := newTestRepository(t, b, true)

	_, err := repo.Create(context.Background(), CreateParams{
		RoomID: 1, DoctorID: 7, ProcedureID: 2,
		Start: at(day, 8, 0), End: at(day, 9, 0),
	})
	require.ErrorIs(t, err, ErrConflict)

	local, err := repo.local.List()
	require.NoError(t, err)
	require.Empty(t, local, "remote-rejected booking must not linger in the fallback")
}

func TestRemoteOutageIsSwallowed(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{remoteStatus: http.StatusInternalServerError}
	repo := newTestRepository(t, b, true)

	rec, err := repo.Create(context.Background(), CreateParams{
		RoomID: 1, DoctorID: 7, ProcedureID: 2,
		Start: at(day, 8, 0), End: at(day, 9, 0),
	})
	require.NoError(t, err, "local fallback is sufficient when the remote is down")

	local, err := repo.local.List()
	require.NoError(t, err)
	require.Len(t, local, 1)
	require.Equal(t, rec.ID, local[0].ID)
}

func TestCancelUnknownIDIsNoOp(t *testing.T) {
	b := &fakeBackend{}
	repo := newTestRepository(t, b, true)

	require.NoError(t, repo.Cancel(context.Background(), "does-not-exist"))
	require.Equal(t, []string{"does-not-exist"}, b.cancels, "cancel is still forwarded best-effort")
}

func TestCancelRemovesLocalCopy(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{}
	repo := newTestRepository(t, b, true)
	ctx := context.Background()

	rec, err := repo.Create(ctx, CreateParams{
		RoomID: 1, DoctorID: 7, ProcedureID: 2,
		Start: at(day, 8, 0), End: at(day, 9, 0),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Cancel(ctx, rec.ID))
	local, err := repo.local.List()
	require.NoError(t, err)
	require.Empty(t, local)
	require.Contains(t, b.cancels, rec.ID)
}

func TestHydrateUsesPlaceholdersForUnknownIDs(t *testing.T) {
	day := time.Date(2025, 10, 29, 0, 0, 0, 0, cdmx)
	b := &fakeBackend{}
	repo := newTestRepository(t, b, false)

	items := []Reservation{
		{ID: "x", RoomID: 1, ProcedureID: 2, Start: at(day, 8, 0), End: at(day, 9, 0)},
		{ID: "y", RoomID: 42, ProcedureID: 99, Start: at(day, 10, 0), End: at(day, 11, 0)},
	}
	hydrated, err := repo.Hydrate(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, "Quirófano A", hydrated[0].RoomName)
	require.Equal(t, "Colecistectomía", hydrated[0].ProcedureName)
	require.Equal(t, "Qx-42", hydrated[1].RoomName)
	require.Equal(t, "Proc 99", hydrated[1].ProcedureName)
}
