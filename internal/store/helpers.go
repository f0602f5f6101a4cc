package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arenaleads/leadpipe/internal/models"
)

// scanLead scans a Lead from sql.Rows. The raw column is nullable; a broken
// raw snapshot is logged and dropped rather than failing the listing.
func scanLead(rows *sql.Rows) (models.Lead, error) {
	var l models.Lead
	var rawJSON sql.NullString
	err := rows.Scan(&l.ID, &l.Phone, &l.Game, &l.Amount, &l.IsUrgent, &l.IsNewCustomer, &rawJSON, &l.CreatedAt)
	if err != nil {
		return l, fmt.Errorf("scan lead failed: %w", err)
	}
	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &l.Raw); err != nil {
			slog.Warn("scanLead raw snapshot unmarshal failed", "error", err, "lead_id", l.ID)
			l.Raw = nil
		}
	}
	return l, nil
}
