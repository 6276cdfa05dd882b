// PostgreSQL-backed conversation turn store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/LukaSashic/PitchPerfect/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversation turns in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// MaxTurnNumber returns the highest turn number recorded for the triple.
func (s *PostgresStore) MaxTurnNumber(userID, projectID string, phase int) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(turn_number) FROM conversation_turns WHERE user_id = $1 AND project_id = $2 AND phase_number = $3`,
		userID, projectID, phase,
	).Scan(&max)
	if err != nil {
		slog.Error("PostgresStore MaxTurnNumber failed", "error", err, "user_id", userID, "phase", phase)
		return 0, fmt.Errorf("failed to query max turn number: %w", err)
	}
	return int(max.Int64), nil
}

// AddTurn appends a conversation turn.
func (s *PostgresStore) AddTurn(t models.ConversationTurn) error {
	_, err := s.db.Exec(
		`INSERT INTO conversation_turns (user_id, project_id, phase_number, turn_number, user_message, ai_response, ai_thinking, ai_analysis, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.UserID, t.ProjectID, t.PhaseNumber, t.TurnNumber, t.UserMessage, t.AIResponse, t.AIThinking, t.AIAnalysis, t.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddTurn failed", "error", err, "user_id", t.UserID, "phase", t.PhaseNumber, "turn", t.TurnNumber)
		return fmt.Errorf("failed to insert turn %d for phase %d: %w", t.TurnNumber, t.PhaseNumber, err)
	}
	slog.Debug("PostgresStore AddTurn succeeded", "user_id", t.UserID, "phase", t.PhaseNumber, "turn", t.TurnNumber)
	return nil
}

// ListTurns returns the triple's turns ordered by ascending turn number.
func (s *PostgresStore) ListTurns(userID, projectID string, phase int) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(
		`SELECT user_id, project_id, phase_number, turn_number, user_message, ai_response, COALESCE(ai_thinking, ''), COALESCE(ai_analysis, ''), created_at
		 FROM conversation_turns WHERE user_id = $1 AND project_id = $2 AND phase_number = $3 ORDER BY turn_number ASC`,
		userID, projectID, phase,
	)
	if err != nil {
		slog.Error("PostgresStore ListTurns query failed", "error", err, "user_id", userID, "phase", phase)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// DeleteTurns removes all turns for the triple.
func (s *PostgresStore) DeleteTurns(userID, projectID string, phase int) error {
	_, err := s.db.Exec(
		`DELETE FROM conversation_turns WHERE user_id = $1 AND project_id = $2 AND phase_number = $3`,
		userID, projectID, phase,
	)
	if err != nil {
		slog.Error("PostgresStore DeleteTurns failed", "error", err, "user_id", userID, "phase", phase)
		return fmt.Errorf("failed to delete turns for phase %d: %w", phase, err)
	}
	slog.Debug("PostgresStore DeleteTurns succeeded", "user_id", userID, "phase", phase)
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
