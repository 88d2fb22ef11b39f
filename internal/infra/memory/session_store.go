package memory

import (
	"context"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore with optional expiry.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   domain.AttemptSession
	expiresAt time.Time
}

// NewSessionStore keeps sessions for ttl after their last save; ttl <= 0 keeps them forever.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Load(_ context.Context, key string) (domain.AttemptSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	if !ok {
		return domain.AttemptSession{}, domain.ErrSessionNotFound
	}
	return cloneSession(entry.session), nil
}

func (s *SessionStore) Save(_ context.Context, key string, session domain.AttemptSession) (domain.AttemptSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if entry, ok := s.liveLocked(key); ok {
		current = entry.session.Version
	}
	if current != session.Version {
		return domain.AttemptSession{}, domain.ErrSessionConflict
	}

	stored := cloneSession(session)
	stored.Version++
	entry := storedSession{session: stored}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[key] = entry
	return cloneSession(stored), nil
}

func (s *SessionStore) Delete(_ context.Context, key string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveLocked(key)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if entry.session.Version != version {
		return domain.ErrSessionConflict
	}
	delete(s.sessions, key)
	return nil
}

func (s *SessionStore) liveLocked(key string) (storedSession, bool) {
	entry, ok := s.sessions[key]
	if !ok {
		return storedSession{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		delete(s.sessions, key)
		return storedSession{}, false
	}
	return entry, true
}

func cloneSession(session domain.AttemptSession) domain.AttemptSession {
	answers := make(map[string]string, len(session.Answers))
	for k, v := range session.Answers {
		answers[k] = v
	}
	session.Answers = answers
	return session
}
