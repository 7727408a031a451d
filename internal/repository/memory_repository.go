package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ryan-quiz/backend/internal/model"
)

// memoryRepository keeps sessions in process memory. Nothing survives a restart,
// which matches a browser tab's lifetime.
type memoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	now      func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

func (r *memoryRepository) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", ErrConflict, session.ID)
	}
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *memoryRepository) Get(_ context.Context, sessionID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *memoryRepository) Update(_ context.Context, sessionID string, fn UpdateFunc) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	// Work on a copy so a failing fn leaves the stored session untouched.
	next := s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now().UTC()
	r.sessions[sessionID] = next
	return next.Clone(), nil
}

func (r *memoryRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *memoryRepository) DeleteIdle(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) Close() error { return nil }
