// SQLite-backed conversation turn store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/LukaSashic/PitchPerfect/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversation turns in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; the containing directory is created if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// MaxTurnNumber returns the highest turn number recorded for the triple.
func (s *SQLiteStore) MaxTurnNumber(userID, projectID string, phase int) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(turn_number) FROM conversation_turns WHERE user_id = ? AND project_id = ? AND phase_number = ?`,
		userID, projectID, phase,
	).Scan(&max)
	if err != nil {
		slog.Error("SQLiteStore MaxTurnNumber failed", "error", err, "user_id", userID, "phase", phase)
		return 0, fmt.Errorf("failed to query max turn number: %w", err)
	}
	return int(max.Int64), nil
}

// AddTurn appends a conversation turn.
func (s *SQLiteStore) AddTurn(t models.ConversationTurn) error {
	_, err := s.db.Exec(
		`INSERT INTO conversation_turns (user_id, project_id, phase_number, turn_number, user_message, ai_response, ai_thinking, ai_analysis, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.ProjectID, t.PhaseNumber, t.TurnNumber, t.UserMessage, t.AIResponse, t.AIThinking, t.AIAnalysis, t.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddTurn failed", "error", err, "user_id", t.UserID, "phase", t.PhaseNumber, "turn", t.TurnNumber)
		return fmt.Errorf("failed to insert turn %d for phase %d: %w", t.TurnNumber, t.PhaseNumber, err)
	}
	slog.Debug("SQLiteStore AddTurn succeeded", "user_id", t.UserID, "phase", t.PhaseNumber, "turn", t.TurnNumber)
	return nil
}

// ListTurns returns the triple's turns ordered by ascending turn number.
func (s *SQLiteStore) ListTurns(userID, projectID string, phase int) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(
		`SELECT user_id, project_id, phase_number, turn_number, user_message, ai_response, COALESCE(ai_thinking, ''), COALESCE(ai_analysis, ''), created_at
		 FROM conversation_turns WHERE user_id = ? AND project_id = ? AND phase_number = ? ORDER BY turn_number ASC`,
		userID, projectID, phase,
	)
	if err != nil {
		slog.Error("SQLiteStore ListTurns query failed", "error", err, "user_id", userID, "phase", phase)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// DeleteTurns removes all turns for the triple.
func (s *SQLiteStore) DeleteTurns(userID, projectID string, phase int) error {
	_, err := s.db.Exec(
		`DELETE FROM conversation_turns WHERE user_id = ? AND project_id = ? AND phase_number = ?`,
		userID, projectID, phase,
	)
	if err != nil {
		slog.Error("SQLiteStore DeleteTurns failed", "error", err, "user_id", userID, "phase", phase)
		return fmt.Errorf("failed to delete turns for phase %d: %w", phase, err)
	}
	slog.Debug("SQLiteStore DeleteTurns succeeded", "user_id", userID, "phase", phase)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTurns(rows *sql.Rows) ([]models.ConversationTurn, error) {
	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.UserID, &t.ProjectID, &t.PhaseNumber, &t.TurnNumber, &t.UserMessage, &t.AIResponse, &t.AIThinking, &t.AIAnalysis, &t.CreatedAt); err != nil {
			slog.Error("Failed to scan turn row", "error", err)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	return turns, nil
}
