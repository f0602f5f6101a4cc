// Package store provides storage backends for LeadPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "embed"

	"github.com/arenaleads/leadpipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
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

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetConversationState retrieves the dialogue state for a phone number.
// Returns nil without error when no record exists.
func (s *SQLiteStore) GetConversationState(phone string) (*models.ConversationState, error) {
	query := `SELECT phone, stage, data, updated_at FROM conversation_states WHERE phone = ?`

	var state models.ConversationState
	var stage, dataJSON string

	err := s.db.QueryRow(query, phone).Scan(&state.Phone, &stage, &dataJSON, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversationState not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get conversation state for %s: %w", phone, err)
	}

	state.Stage = models.StageType(stage)
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &state.Data); err != nil {
			slog.Error("SQLiteStore GetConversationState JSON unmarshal failed", "error", err, "phone", phone)
			state.Data = models.ConversationData{}
		}
	}

	slog.Debug("SQLiteStore GetConversationState found", "phone", phone, "stage", state.Stage)
	return &state, nil
}

// SaveConversationState upserts the dialogue state keyed by phone.
func (s *SQLiteStore) SaveConversationState(state models.ConversationState) error {
	query := `
		INSERT OR REPLACE INTO conversation_states (phone, stage, data, updated_at)
		VALUES (?, ?, ?, ?)`

	dataJSON, err := json.Marshal(state.Data)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState JSON marshal failed", "error", err, "phone", state.Phone)
		return err
	}

	_, err = s.db.Exec(query, state.Phone, string(state.Stage), string(dataJSON), state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "phone", state.Phone, "stage", state.Stage)
		return fmt.Errorf("failed to save conversation state for %s: %w", state.Phone, err)
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "phone", state.Phone, "stage", state.Stage)
	return nil
}

// AddLead appends a completed lead record.
func (s *SQLiteStore) AddLead(lead models.Lead) error {
	if err := lead.Validate(); err != nil {
		return fmt.Errorf("invalid lead: %w", err)
	}

	var rawJSON string
	if len(lead.Raw) > 0 {
		jsonBytes, err := json.Marshal(lead.Raw)
		if err != nil {
			slog.Error("SQLiteStore AddLead raw marshal failed", "error", err, "phone", lead.Phone)
			return err
		}
		rawJSON = string(jsonBytes)
	}

	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO leads (phone, game, amount, is_urgent, is_new_customer, raw, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lead.Phone, lead.Game, lead.Amount, lead.IsUrgent, lead.IsNewCustomer, rawJSON, createdAt)
	if err != nil {
		slog.Error("SQLiteStore AddLead failed", "error", err, "phone", lead.Phone)
		return fmt.Errorf("failed to insert lead for %s: %w", lead.Phone, err)
	}
	slog.Debug("SQLiteStore AddLead succeeded", "phone", lead.Phone, "game", lead.Game, "amount", lead.Amount)
	return nil
}

// ListLeads retrieves all recorded leads, newest first.
func (s *SQLiteStore) ListLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT id, phone, game, amount, is_urgent, is_new_customer, raw, created_at FROM leads ORDER BY created_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore ListLeads scan failed", "error", err)
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListLeads rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("SQLiteStore ListLeads succeeded", "count", len(leads))
	return leads, nil
}

// BotEnabled reports the process-wide toggle; defaults to true when unset.
func (s *SQLiteStore) BotEnabled() (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, enabledSettingKey).Scan(&value)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		slog.Error("SQLiteStore BotEnabled failed", "error", err)
		return true, fmt.Errorf("failed to read bot enabled flag: %w", err)
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("SQLiteStore BotEnabled invalid stored value, defaulting to enabled", "value", value)
		return true, nil
	}
	return enabled, nil
}

// SetBotEnabled persists the process-wide toggle.
func (s *SQLiteStore) SetBotEnabled(enabled bool) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, enabledSettingKey, strconv.FormatBool(enabled))
	if err != nil {
		slog.Error("SQLiteStore SetBotEnabled failed", "error", err, "enabled", enabled)
		return fmt.Errorf("failed to set bot enabled flag: %w", err)
	}
	slog.Debug("SQLiteStore SetBotEnabled succeeded", "enabled", enabled)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
