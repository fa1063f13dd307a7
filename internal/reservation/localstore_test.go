package reservation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreMissingFileReadsEmpty(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "reservas.json"))
	list, err := store.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestLocalStoreAppendRemoveCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservas.json")
	store := NewLocalStore(path)

	start := time.Date(2025, 10, 29, 8, 0, 0, 0, time.UTC)
	recA := Reservation{ID: "a", RoomID: 1, DoctorID: 7, ProcedureID: 2, Start: start, End: start.Add(time.Hour)}
	recB := Reservation{ID: "b", RoomID: 2, DoctorID: 7, ProcedureID: 3, Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)}

	require.NoError(t, store.Append(recA))
	require.NoError(t, store.Append(recB))

	// A fresh store on the same path must see both records (survives restarts).
	reopened := NewLocalStore(path)
	list, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.True(t, list[0].Start.Equal(recA.Start))

	removed, err := reopened.Remove("a")
	require.NoError(t, err)
	require.True(t, removed)

	list, err = reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "b", list[0].ID)
}

func TestLocalStoreRemoveUnknownIsNoOp(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "reservas.json"))
	removed, err := store.Remove("ghost")
	require.NoError(t, err)
	require.False(t, removed)
}
