package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryRepo is an in-memory implementation of Repo. Suitable for a
// single-process deployment; sessions are lost on restart.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or updates a session record
func (r *InMemoryRepo) Upsert(_ context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	return nil
}

// Get retrieves a session by ID. Expired records are dropped on read.
func (r *InMemoryRepo) Get(_ context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, fmt.Errorf("session ID is required")
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return Session{}, ErrNotFound
	}

	if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(time.Now()) {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return Session{}, ErrNotFound
	}

	return s, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}
