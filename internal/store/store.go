// Package store provides storage backends for LeadPipe.
//
// It persists per-phone conversation state, append-only lead records and the
// process-wide bot toggle, with PostgreSQL, SQLite and in-memory backends.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/arenaleads/leadpipe/internal/models"
)

// Store is the persistence boundary consumed by the dispatcher and the API.
type Store interface {
	// GetConversationState returns the state for a phone, or nil when no
	// record exists. A missing record is not an error; the caller
	// materializes the fresh idle default.
	GetConversationState(phone string) (*models.ConversationState, error)

	// SaveConversationState upserts the state keyed by phone.
	SaveConversationState(state models.ConversationState) error

	// AddLead appends a completed lead record. Leads are never updated.
	AddLead(lead models.Lead) error

	// ListLeads returns all recorded leads, newest first.
	ListLeads() ([]models.Lead, error)

	// BotEnabled reports the process-wide toggle; true when never set.
	BotEnabled() (bool, error)

	// SetBotEnabled persists the process-wide toggle.
	SetBotEnabled(enabled bool) error

	// Close releases the underlying database resources.
	Close() error
}

// enabledSettingKey is the settings-table key for the bot toggle.
const enabledSettingKey = "bot_enabled"

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3" so the right
// backend (and driver) can be selected from a single configuration value.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore keeps all records in process memory. It backs tests and
// DSN-less development runs; data does not survive a restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	states  map[string]models.ConversationState
	leads   []models.Lead
	enabled *bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]models.ConversationState)}
}

func (s *InMemoryStore) GetConversationState(phone string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[phone]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *InMemoryStore) SaveConversationState(state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Phone] = state
	return nil
}

func (s *InMemoryStore) AddLead(lead models.Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	lead.ID = int64(len(s.leads) + 1)
	s.leads = append(s.leads, lead)
	return nil
}

func (s *InMemoryStore) ListLeads() ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leads := make([]models.Lead, 0, len(s.leads))
	for i := len(s.leads) - 1; i >= 0; i-- {
		leads = append(leads, s.leads[i])
	}
	return leads, nil
}

func (s *InMemoryStore) BotEnabled() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.enabled == nil {
		return true, nil
	}
	return *s.enabled, nil
}

func (s *InMemoryStore) SetBotEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = &enabled
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
