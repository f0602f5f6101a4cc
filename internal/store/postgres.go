// Package store provides storage backends for LeadPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "embed"

	"github.com/arenaleads/leadpipe/internal/models"
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

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
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

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetConversationState retrieves the dialogue state for a phone number.
// Returns nil without error when no record exists.
func (s *PostgresStore) GetConversationState(phone string) (*models.ConversationState, error) {
	query := `SELECT phone, stage, data, updated_at FROM conversation_states WHERE phone = $1`

	var state models.ConversationState
	var stage string
	var dataJSON []byte

	err := s.db.QueryRow(query, phone).Scan(&state.Phone, &stage, &dataJSON, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversationState not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", phone, err)
	}

	state.Stage = models.StageType(stage)
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &state.Data); err != nil {
			slog.Error("PostgresStore GetConversationState JSON unmarshal failed", "error", err, "phone", phone)
			// Continue with empty data rather than failing the turn
			state.Data = models.ConversationData{}
		}
	}

	slog.Debug("PostgresStore GetConversationState found", "phone", phone, "stage", state.Stage)
	return &state, nil
}

// SaveConversationState upserts the dialogue state keyed by phone.
func (s *PostgresStore) SaveConversationState(state models.ConversationState) error {
	query := `
		INSERT INTO conversation_states (phone, stage, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone)
		DO UPDATE SET
			stage = EXCLUDED.stage,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`

	dataJSON, err := json.Marshal(state.Data)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState JSON marshal failed", "error", err, "phone", state.Phone)
		return err
	}

	_, err = s.db.Exec(query, state.Phone, string(state.Stage), dataJSON, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "phone", state.Phone, "stage", state.Stage)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.Phone, err)
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "phone", state.Phone, "stage", state.Stage)
	return nil
}

// AddLead appends a completed lead record.
func (s *PostgresStore) AddLead(lead models.Lead) error {
	if err := lead.Validate(); err != nil {
		return fmt.Errorf("invalid lead: %w", err)
	}

	var rawJSON []byte
	if len(lead.Raw) > 0 {
		var err error
		rawJSON, err = json.Marshal(lead.Raw)
		if err != nil {
			slog.Error("PostgresStore AddLead raw marshal failed", "error", err, "phone", lead.Phone)
			return err
		}
	}

	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO leads (phone, game, amount, is_urgent, is_new_customer, raw, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		lead.Phone, lead.Game, lead.Amount, lead.IsUrgent, lead.IsNewCustomer, rawJSON, createdAt)
	if err != nil {
		slog.Error("PostgresStore AddLead failed", "error", err, "phone", lead.Phone)
		return fmt.Errorf("failed to insert lead for %s: %w", lead.Phone, err)
	}
	slog.Debug("PostgresStore AddLead succeeded", "phone", lead.Phone, "game", lead.Game, "amount", lead.Amount)
	return nil
}

// ListLeads retrieves all recorded leads, newest first.
func (s *PostgresStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT id, phone, game, amount, is_urgent, is_new_customer, raw, created_at FROM leads ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("PostgresStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("PostgresStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

// BotEnabled reports the process-wide toggle; defaults to true when unset.
func (s *PostgresStore) BotEnabled() (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, enabledSettingKey).Scan(&value)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		slog.Error("PostgresStore BotEnabled failed", "error", err)
		return true, fmt.Errorf("failed to read bot enabled flag: %w", err)
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("PostgresStore BotEnabled invalid stored value, defaulting to enabled", "value", value)
		return true, nil
	}
	return enabled, nil
}

// SetBotEnabled persists the process-wide toggle.
func (s *PostgresStore) SetBotEnabled(enabled bool) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := s.db.Exec(query, enabledSettingKey, strconv.FormatBool(enabled))
	if err != nil {
		slog.Error("PostgresStore SetBotEnabled failed", "error", err, "enabled", enabled)
		return fmt.Errorf("failed to set bot enabled flag: %w", err)
	}
	slog.Debug("PostgresStore SetBotEnabled succeeded", "enabled", enabled)
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
