package models

import "time"

// ScannedData is the append-only audit row written once per accepted
// scan. Within a session the (holder, card, item) triple is unique.
type ScannedData struct {
	ID        string    `json:"id"`         // Primary key
	SessionID string    `json:"session_id"` // FK to scan_sessions(id)
	HolderID  string    `json:"holder_id"`  // FK to users(id)
	CardID    string    `json:"card_id"`    // FK to cards(id)
	ItemID    string    `json:"item_id,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
