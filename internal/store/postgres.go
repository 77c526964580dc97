// Package store provides storage backends for NatureScripts.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.PostgresDSN != "")

	dsn := cfg.PostgresDSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetFlowState returns the flow state for a session, or nil when none exists.
func (s *PostgresStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	row := s.db.QueryRow(`SELECT session_id, flow_type, current_state, state_data, created_at, updated_at FROM flow_states WHERE session_id = $1 AND flow_type = $2`, sessionID, flowType)
	state, err := scanFlowState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, fmt.Errorf("failed to get flow state: %w", err)
	}
	return state, nil
}

// SaveFlowState upserts a flow state.
func (s *PostgresStore) SaveFlowState(state models.FlowState) error {
	stateDataJSON, err := json.Marshal(state.StateData)
	if err != nil {
		return fmt.Errorf("failed to serialize state data: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO flow_states (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, flow_type) DO UPDATE SET current_state = EXCLUDED.current_state, state_data = EXCLUDED.state_data, updated_at = EXCLUDED.updated_at`,
		state.SessionID, string(state.FlowType), string(state.CurrentState), string(stateDataJSON), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// DeleteFlowState removes a flow state.
func (s *PostgresStore) DeleteFlowState(sessionID, flowType string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = $1 AND flow_type = $2`, sessionID, flowType)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return fmt.Errorf("failed to delete flow state: %w", err)
	}
	return nil
}

// SaveProtocol stores a generated protocol as a JSON payload.
func (s *PostgresStore) SaveProtocol(p models.Protocol) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize protocol: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO protocols (id, session_id, tier, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.SessionID, string(p.Tier), string(payload), p.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProtocol failed", "error", err, "protocolID", p.ID)
		return fmt.Errorf("failed to insert protocol %s: %w", p.ID, err)
	}
	return nil
}

// GetProtocols returns all protocols for a session, newest first.
func (s *PostgresStore) GetProtocols(sessionID string) ([]models.Protocol, error) {
	rows, err := s.db.Query(`SELECT payload FROM protocols WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetProtocols query failed", "error", err, "sessionID", sessionID)
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
func (s *PostgresStore) GetProtocol(id string) (*models.Protocol, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM protocols WHERE id = $1`, id).Scan(&payload)
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
func (s *PostgresStore) IncrementDailyUsage(day string, calls int) error {
	_, err := s.db.Exec(`INSERT INTO daily_usage (day, model_calls) VALUES ($1, $2)
		ON CONFLICT (day) DO UPDATE SET model_calls = daily_usage.model_calls + EXCLUDED.model_calls`, day, calls)
	if err != nil {
		slog.Error("PostgresStore IncrementDailyUsage failed", "error", err, "day", day)
		return fmt.Errorf("failed to increment usage for %s: %w", day, err)
	}
	return nil
}

// GetDailyUsage returns the model-call count recorded for a day.
func (s *PostgresStore) GetDailyUsage(day string) (int, error) {
	var calls int
	err := s.db.QueryRow(`SELECT model_calls FROM daily_usage WHERE day = $1`, day).Scan(&calls)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get usage for %s: %w", day, err)
	}
	return calls, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
