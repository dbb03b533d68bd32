// Package consult runs doctor consultations over retrieved medical context.
package consult

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// Session is one patient's consultation: an ordered list of turns.
type Session struct {
	ID        string
	CreatedAt time.Time

	turns []models.Turn
	mu    sync.RWMutex
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	return &Session{ID: uuid.New().String(), CreatedAt: time.Now()}
}

func (s *Session) append(kind, query, response string) models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn := models.Turn{
		SessionID: s.ID,
		Kind:      kind,
		Query:     query,
		Response:  response,
		CreatedAt: time.Now(),
	}
	s.turns = append(s.turns, turn)
	return turn
}

// Turns returns a copy of all turns in order.
func (s *Session) Turns() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// History returns the last n turns, oldest first.
func (s *Session) History(n int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := max(len(s.turns)-n, 0)
	out := make([]models.Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Reset drops every turn.
func (s *Session) Reset() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

// Log renders the transcript offered for download.
func (s *Session) Log() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]string, 0, len(s.turns))
	for _, t := range s.turns {
		label := "User"
		if t.Kind == models.TurnFollowUp {
			label = "User(Follow-up)"
		}
		entries = append(entries, label+": "+t.Query+"\nDoctor: "+t.Response+"\n")
	}
	return strings.Join(entries, "\n")
}

func (s *Session) restore(turns []*models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = s.turns[:0]
	for _, t := range turns {
		s.turns = append(s.turns, *t)
	}
}
