package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxPending    = "pending"
	TxSuccessful = "successful"
	TxFailed     = "failed"
	TxPenalty    = "penalty"
)

// Transaction records one accepted charge against a card. Amount
// includes the penalty surcharge when status is penalty. Immutable
// once written.
type Transaction struct {
	ID        string          `json:"id"`        // Primary key
	HolderID  string          `json:"holder_id"` // FK to users(id)
	CardID    string          `json:"card_id"`   // FK to cards(id)
	ItemID    string          `json:"item_id"`   // FK to canteen_items(id)
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
