// Package flow implements the coaching flows: the phase/turn orchestrator,
// the pitch analyzer, phase evaluation, adaptive question generation and the
// personalized diagnostic.
package flow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/store"
)

// TurnSession tracks the monotonic turn counter and conversation log for one
// (user, project, phase) triple. The durable store is preferred; on failure
// the session transparently degrades to the fallback store so a coaching
// turn is never aborted by persistence trouble.
//
// The read-then-increment of the counter is not guarded by a transaction;
// concurrent turns for the same triple can race. Accepted limitation.
type TurnSession struct {
	durable  store.Store
	fallback store.Store

	userID    string
	projectID string
	phase     int

	nextTurn int
	loaded   bool
}

// NewTurnSession opens a session for the triple. State is loaded lazily on
// first use.
func NewTurnSession(durable, fallback store.Store, userID, projectID string, phase int) *TurnSession {
	return &TurnSession{
		durable:   durable,
		fallback:  fallback,
		userID:    userID,
		projectID: projectID,
		phase:     phase,
		nextTurn:  1,
	}
}

// loadState initializes nextTurn from max(existing)+1, defaulting to 1.
func (s *TurnSession) loadState() {
	if s.loaded {
		return
	}
	max, err := s.durable.MaxTurnNumber(s.userID, s.projectID, s.phase)
	if err != nil {
		slog.Warn("TurnSession.loadState: durable store read failed, trying fallback", "error", err, "user_id", s.userID, "phase", s.phase)
		max, err = s.fallback.MaxTurnNumber(s.userID, s.projectID, s.phase)
		if err != nil {
			slog.Warn("TurnSession.loadState: fallback store read failed, starting at turn 1", "error", err, "user_id", s.userID, "phase", s.phase)
			max = 0
		}
	}
	s.nextTurn = max + 1
	s.loaded = true
	slog.Debug("TurnSession.loadState: session loaded", "user_id", s.userID, "phase", s.phase, "next_turn", s.nextTurn)
}

// CurrentTurn returns the next turn number to be recorded.
func (s *TurnSession) CurrentTurn() int {
	s.loadState()
	return s.nextTurn
}

// RecordTurn appends a conversation turn at the current turn number and
// advances the counter. Durable write failures fall through to the fallback
// store; only when both fail is ErrPersistenceDegraded returned, and callers
// absorb it.
func (s *TurnSession) RecordTurn(userMessage, aiResponse string, reply extract.CoachingReply) error {
	s.loadState()
	t := models.ConversationTurn{
		UserID:      s.userID,
		ProjectID:   s.projectID,
		PhaseNumber: s.phase,
		TurnNumber:  s.nextTurn,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		AIThinking:  reply.Thinking,
		AIAnalysis:  reply.Analysis,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.durable.AddTurn(t); err != nil {
		slog.Warn("TurnSession.RecordTurn: durable write failed, using fallback store", "error", err, "user_id", s.userID, "phase", s.phase, "turn", s.nextTurn)
		if fbErr := s.fallback.AddTurn(t); fbErr != nil {
			slog.Error("TurnSession.RecordTurn: fallback write failed", "error", fbErr, "user_id", s.userID, "phase", s.phase, "turn", s.nextTurn)
			return fmt.Errorf("turn %d not recorded: %w", s.nextTurn, models.ErrPersistenceDegraded)
		}
	}

	slog.Debug("TurnSession.RecordTurn: turn recorded", "user_id", s.userID, "phase", s.phase, "turn", s.nextTurn)
	s.nextTurn++
	return nil
}

// History reconstructs the flattened alternating user/assistant sequence for
// the triple, ordered by ascending turn number. Read failures degrade to an
// empty history.
func (s *TurnSession) History() []models.ChatMessage {
	turns, err := s.durable.ListTurns(s.userID, s.projectID, s.phase)
	if err != nil {
		slog.Warn("TurnSession.History: durable store read failed, trying fallback", "error", err, "user_id", s.userID, "phase", s.phase)
		turns, err = s.fallback.ListTurns(s.userID, s.projectID, s.phase)
		if err != nil {
			slog.Warn("TurnSession.History: fallback store read failed, returning empty history", "error", err, "user_id", s.userID, "phase", s.phase)
			return nil
		}
	}

	history := make([]models.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history,
			models.ChatMessage{Role: models.RoleUser, Content: t.UserMessage},
			models.ChatMessage{Role: models.RoleAssistant, Content: t.AIResponse},
		)
	}
	return history
}

// ResetPhase deletes all turns for the triple and resets the counter to 1.
func (s *TurnSession) ResetPhase() error {
	if err := s.durable.DeleteTurns(s.userID, s.projectID, s.phase); err != nil {
		slog.Error("TurnSession.ResetPhase: durable delete failed", "error", err, "user_id", s.userID, "phase", s.phase)
		return fmt.Errorf("failed to reset phase %d: %w", s.phase, err)
	}
	if err := s.fallback.DeleteTurns(s.userID, s.projectID, s.phase); err != nil {
		slog.Warn("TurnSession.ResetPhase: fallback delete failed", "error", err, "user_id", s.userID, "phase", s.phase)
	}
	s.nextTurn = 1
	s.loaded = true
	slog.Info("TurnSession.ResetPhase: phase reset", "user_id", s.userID, "phase", s.phase)
	return nil
}
