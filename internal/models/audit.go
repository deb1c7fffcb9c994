package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only record of an action taken against a deal.
// Entries are never mutated or deleted once written.
type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	DealID    uuid.UUID `json:"deal_id"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes"`
	FileLink  string    `json:"file_link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
