package reservation

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// LocalStore is the durable local fallback: a JSON file holding the full
// reservation list, read fully and rewritten fully on each mutation. It
// keeps bookings usable across restarts when the remote endpoint is down.
type LocalStore struct {
	mu   sync.Mutex
	path string
}

// NewLocalStore creates a store backed by the file at path. The file is
// created lazily on first append.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

// List returns every stored reservation. A missing file reads as empty.
func (s *LocalStore) List() ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Append adds one reservation and rewrites the file.
func (s *LocalStore) Append(rec Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read()
	if err != nil {
		return err
	}
	list = append(list, rec)
	return s.write(list)
}

// Remove deletes the reservation with the given id if present, reporting
// whether anything was removed.
func (s *LocalStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read()
	if err != nil {
		return false, err
	}
	kept := list[:0]
	removed := false
	for _, rec := range list {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return false, nil
	}
	return true, s.write(kept)
}

func (s *LocalStore) read() ([]Reservation, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reservation: read local store: %w", err)
	}
	var list []Reservation
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("reservation: decode local store: %w", err)
	}
	return list, nil
}

func (s *LocalStore) write(list []Reservation) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("reservation: encode local store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("reservation: write local store: %w", err)
	}
	return nil
}
