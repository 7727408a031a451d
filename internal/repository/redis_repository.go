package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ryan-quiz/backend/internal/model"
)

const maxUpdateRetries = 5

type redisRepository struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisRepository stores each session as one JSON value. Keys expire after
// ttl without writes, so idle sessions are dropped by Redis itself. A zero ttl
// keeps sessions until deleted.
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) Repository {
	return &redisRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *redisRepository) sessionKey(sessionID string) string { return fmt.Sprintf("session:%s", sessionID) }

func (r *redisRepository) Create(ctx context.Context, s *model.Session) error {
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.sessionKey(s.ID), val, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("could not store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: session %s already exists", ErrConflict, s.ID)
	}
	return nil
}

func decodeSession(val []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("could not unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *redisRepository) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	val, err := r.rdb.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeSession(val)
}

// Update uses WATCH/MULTI so concurrent writers, possibly in other processes,
// never overwrite each other; a lost race is retried.
func (r *redisRepository) Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.Session, error) {
	key := r.sessionKey(sessionID)
	var updated *model.Session

	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		s, err := decodeSession(val)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = r.now().UTC()
		next, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("could not marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, r.ttl)
			return nil
		})
		if err == nil {
			updated = s
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (r *redisRepository) Delete(ctx context.Context, sessionID string) error {
	n, err := r.rdb.Del(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIdle is a no-op: key expiry already removes idle sessions.
func (r *redisRepository) DeleteIdle(context.Context, time.Time) (int, error) { return 0, nil }

func (r *redisRepository) Close() error { return r.rdb.Close() }
