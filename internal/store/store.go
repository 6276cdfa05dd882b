// Package store provides storage backends for conversation turns.
//
// Turns are keyed by the (user, project, phase) triple and append-only:
// nothing updates a recorded turn, and deletion happens only through an
// explicit phase reset. PostgreSQL is the durable backend; SQLite serves
// local deployments and the in-memory store backs tests and the fail-soft
// fallback path.
package store

import (
	"sort"
	"sync"

	"github.com/LukaSashic/PitchPerfect/internal/models"
)

// Store defines the persistence operations used by the turn tracker.
type Store interface {
	// MaxTurnNumber returns the highest recorded turn number for the
	// triple, or 0 when no turns exist.
	MaxTurnNumber(userID, projectID string, phase int) (int, error)
	// AddTurn appends a turn. Implementations never overwrite an existing
	// turn number.
	AddTurn(t models.ConversationTurn) error
	// ListTurns returns all turns for the triple ordered by ascending
	// turn number.
	ListTurns(userID, projectID string, phase int) ([]models.ConversationTurn, error)
	// DeleteTurns removes all turns for the triple.
	DeleteTurns(userID, projectID string, phase int) error
	// Close releases the underlying resources.
	Close() error
}

// InMemoryStore keeps turns in process memory. It backs tests and the
// fallback path when the durable store is unreachable.
type InMemoryStore struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func matches(t models.ConversationTurn, userID, projectID string, phase int) bool {
	return t.UserID == userID && t.ProjectID == projectID && t.PhaseNumber == phase
}

// MaxTurnNumber returns the highest turn number recorded for the triple.
func (s *InMemoryStore) MaxTurnNumber(userID, projectID string, phase int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, t := range s.turns {
		if matches(t, userID, projectID, phase) && t.TurnNumber > max {
			max = t.TurnNumber
		}
	}
	return max, nil
}

// AddTurn appends a turn.
func (s *InMemoryStore) AddTurn(t models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	return nil
}

// ListTurns returns the triple's turns ordered by ascending turn number.
func (s *InMemoryStore) ListTurns(userID, projectID string, phase int) ([]models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ConversationTurn
	for _, t := range s.turns {
		if matches(t, userID, projectID, phase) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

// DeleteTurns removes all turns for the triple.
func (s *InMemoryStore) DeleteTurns(userID, projectID string, phase int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.turns[:0]
	for _, t := range s.turns {
		if !matches(t, userID, projectID, phase) {
			kept = append(kept, t)
		}
	}
	s.turns = kept
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
