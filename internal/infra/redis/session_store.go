package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"quizmaster-service/internal/domain"
)

// SessionStore keeps attempt sessions as JSON values with a sliding TTL.
// Save and Delete run under WATCH so a request holding a stale version
// cannot overwrite progress made by a concurrent request.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, key string) (domain.AttemptSession, error) {
	return s.get(ctx, s.client, s.key(key))
}

func (s *SessionStore) Save(ctx context.Context, key string, session domain.AttemptSession) (domain.AttemptSession, error) {
	redisKey := s.key(key)
	stored := session
	stored.Version++

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, redisKey)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			if session.Version != 0 {
				return domain.ErrSessionConflict
			}
		case err != nil:
			return err
		case current.Version != session.Version:
			return domain.ErrSessionConflict
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, s.ttl)
			return nil
		})
		return err
	}, redisKey)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.AttemptSession{}, domain.ErrSessionConflict
	}
	if err != nil {
		return domain.AttemptSession{}, err
	}
	return stored, nil
}

func (s *SessionStore) Delete(ctx context.Context, key string, version int64) error {
	redisKey := s.key(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, redisKey)
		if err != nil {
			return err
		}
		if current.Version != version {
			return domain.ErrSessionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			return nil
		})
		return err
	}, redisKey)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrSessionConflict
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) get(ctx context.Context, c getter, redisKey string) (domain.AttemptSession, error) {
	data, err := c.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AttemptSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.AttemptSession{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.AttemptSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.AttemptSession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.Answers == nil {
		session.Answers = map[string]string{}
	}
	return session, nil
}

func (s *SessionStore) key(key string) string {
	return "quiz:session:" + key
}
