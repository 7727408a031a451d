package repository

import (
	"context"
	"time"

	"ryan-quiz/backend/internal/model"
)

// UpdateFunc mutates a session in place. Returning an error aborts the update
// and leaves the stored session untouched.
type UpdateFunc func(s *model.Session) error

// Repository stores sessions. Every implementation applies Update atomically
// with respect to other updates of the same session.
type Repository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	// Update loads the session, applies fn and stores the result, returning
	// the stored copy.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.Session, error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteIdle removes sessions not updated since before and returns how
	// many were removed.
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
	Close() error
}
