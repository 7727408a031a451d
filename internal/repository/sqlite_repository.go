package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"ryan-quiz/backend/internal/model"
)

const (
	insertSessionQuery = `INSERT INTO sessions (id, question_index, in_testing_mode, completed, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectSessionQuery = `SELECT id, question_index, in_testing_mode, completed, messages, created_at, updated_at FROM sessions WHERE id = ?`
	updateSessionQuery = `UPDATE sessions SET question_index = ?, in_testing_mode = ?, completed = ?, messages = ?, updated_at = ? WHERE id = ?`
	deleteSessionQuery = `DELETE FROM sessions WHERE id = ?`
	deleteIdleQuery    = `DELETE FROM sessions WHERE updated_at < ?`
)

type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository stores sessions in the sessions table. The message
// history is kept as one JSON document per session, replaced on every update.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db, now: time.Now}
}

func (r *sqliteRepository) Create(ctx context.Context, s *model.Session) error {
	messages, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("could not marshal messages: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertSessionQuery,
		s.ID, s.State.Cursor, s.State.InTestingMode, s.State.Completed, string(messages), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: session %s already exists", ErrConflict, s.ID)
		}
		return fmt.Errorf("could not insert session: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s        model.Session
		messages string
	)
	err := row.Scan(&s.ID, &s.State.Cursor, &s.State.InTestingMode, &s.State.Completed, &messages, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &s.Messages); err != nil {
		return nil, fmt.Errorf("could not unmarshal messages of session %s: %w", s.ID, err)
	}
	return &s, nil
}

func (r *sqliteRepository) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, selectSessionQuery, sessionID))
}

// Update runs the read-modify-write inside one transaction. The database is
// opened with immediate transaction locking, so concurrent updates serialize.
func (r *sqliteRepository) Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := scanSession(tx.QueryRowContext(ctx, selectSessionQuery, sessionID))
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = r.now().UTC()

	messages, err := json.Marshal(s.Messages)
	if err != nil {
		return nil, fmt.Errorf("could not marshal messages: %w", err)
	}
	_, err = tx.ExecContext(ctx, updateSessionQuery,
		s.State.Cursor, s.State.InTestingMode, s.State.Completed, string(messages), s.UpdatedAt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit session update: %w", err)
	}
	return s, nil
}

func (r *sqliteRepository) Delete(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx, deleteSessionQuery, sessionID)
	if err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRepository) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, deleteIdleQuery, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("could not delete idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *sqliteRepository) Close() error { return r.db.Close() }
