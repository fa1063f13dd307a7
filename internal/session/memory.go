package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a process-local map. Suitable for a single
// instance; swap in the Redis store to share sessions across instances.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the sender's session, or (nil, nil) for unseen senders.
func (s *MemoryStore) Get(_ context.Context, sender string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sender]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

// Put stores the session, rejecting payloads invalid for their step.
func (s *MemoryStore) Put(_ context.Context, sender string, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	copied.UpdatedAt = s.now()
	s.sessions[sender] = &copied
	return nil
}

// Clear deletes the sender's session if present.
func (s *MemoryStore) Clear(_ context.Context, sender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sender)
	return nil
}
