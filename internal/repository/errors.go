package repository

import "errors"

// ErrNotFound is returned when a session id is unknown to the store. The
// service layer translates it into the application's ErrNotFound.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict is returned when an optimistic update lost every retry, or when
// Create is given an id that is already stored.
var ErrConflict = errors.New("repository: conflict")
