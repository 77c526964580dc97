// Package store provides storage backends for NatureScripts.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the configured DSN.
// The DSN is a file path; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.SQLiteDSN != "")

	dsn := cfg.SQLiteDSN
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
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetFlowState returns the flow state for a session, or nil when none exists.
func (s *SQLiteStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	row := s.db.QueryRow(`SELECT session_id, flow_type, current_state, state_data, created_at, updated_at FROM flow_states WHERE session_id = ? AND flow_type = ?`, sessionID, flowType)
	state, err := scanFlowState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, fmt.Errorf("failed to get flow state: %w", err)
	}
	return state, nil
}

// SaveFlowState upserts a flow state.
func (s *SQLiteStore) SaveFlowState(state models.FlowState) error {
	stateDataJSON, err := json.Marshal(state.StateData)
	if err != nil {
		return fmt.Errorf("failed to serialize state data: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO flow_states (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, flow_type) DO UPDATE SET current_state = excluded.current_state, state_data = excluded.state_data, updated_at = excluded.updated_at`,
		state.SessionID, string(state.FlowType), string(state.CurrentState), string(stateDataJSON), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// DeleteFlowState removes a flow state.
func (s *SQLiteStore) DeleteFlowState(sessionID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = ? AND flow_type = ?`, sessionID, flowType)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return fmt.Errorf("failed to delete flow state: %w", err)
	}
	return nil
}

// SaveProtocol stores a generated protocol as a JSON payload.
func (s *SQLiteStore) SaveProtocol(p models.Protocol) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize protocol: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO protocols (id, session_id, tier, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, string(p.Tier), string(payload), p.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProtocol failed", "error", err, "protocolID", p.ID)
		return fmt.Errorf("failed to insert protocol %s: %w", p.ID, err)
	}
	slog.Debug("SQLiteStore SaveProtocol succeeded", "protocolID", p.ID, "sessionID", p.SessionID)
	return nil
}

// GetProtocols returns all protocols for a session, newest first.
func (s *SQLiteStore) GetProtocols(sessionID string) ([]models.Protocol, error) {
	rows, err := s.db.Query(`SELECT payload FROM protocols WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetProtocols query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query protocols: %w", err)
	}
	defer rows.Close()

	var protocols []models.Protocol
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan protocol row: %w", err)
		}
		var p models.Protocol
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to parse protocol payload: %w", err)
		}
		protocols = append(protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate protocol rows: %w", err)
	}
	return protocols, nil
}

// GetProtocol returns a protocol by ID, or nil when not found.
func (s *SQLiteStore) GetProtocol(id string) (*models.Protocol, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM protocols WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol: %w", err)
	}
	var p models.Protocol
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to parse protocol payload: %w", err)
	}
	return &p, nil
}

// IncrementDailyUsage adds model calls to a day's usage counter.
func (s *SQLiteStore) IncrementDailyUsage(day string, calls int) error {
	_, err := s.db.Exec(`INSERT INTO daily_usage (day, model_calls) VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET model_calls = model_calls + excluded.model_calls`, day, calls)
	if err != nil {
		slog.Error("SQLiteStore IncrementDailyUsage failed", "error", err, "day", day)
		return fmt.Errorf("failed to increment usage for %s: %w", day, err)
	}
	return nil
}

// GetDailyUsage returns the model-call count recorded for a day.
func (s *SQLiteStore) GetDailyUsage(day string) (int, error) {
	var calls int
	err := s.db.QueryRow(`SELECT model_calls FROM daily_usage WHERE day = ?`, day).Scan(&calls)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get usage for %s: %w", day, err)
	}
	return calls, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
