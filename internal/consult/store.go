package consult

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/storage"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps live sessions in memory and, when a TurnStore is set,
// persists every turn so sessions survive a restart.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	turns    storage.TurnStore
	logger   *zap.Logger
}

// NewSessionStore creates a store. turns may be nil.
func NewSessionStore(turns storage.TurnStore, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		turns:    turns,
		logger:   logger,
	}
}

// Create registers a new empty session.
func (s *SessionStore) Create() *Session {
	sess := NewSession()
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with id, reloading persisted turns if it is not live.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if s.turns == nil {
		return nil, ErrSessionNotFound
	}

	turns, err := s.turns.ListTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess = &Session{ID: id, CreatedAt: turns[0].CreatedAt}
	sess.restore(turns)
	s.sessions[id] = sess
	return sess, nil
}

// Reset clears a session's turns in memory and in the TurnStore.
func (s *SessionStore) Reset(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Reset()
	if s.turns != nil {
		if err := s.turns.DeleteTurns(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// record appends a turn to sess and persists it. A persistence failure is logged, not returned.
func (s *SessionStore) record(ctx context.Context, sess *Session, kind, query, response string) {
	turn := sess.append(kind, query, response)
	if s.turns == nil {
		return
	}
	if err := s.turns.AppendTurn(ctx, &turn); err != nil {
		s.logger.Warn("failed to persist turn",
			zap.String("session", sess.ID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
