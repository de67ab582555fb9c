package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositPending   = "pending"
	DepositProcessed = "processed"
	DepositFailed    = "failed"
)

// Deposit is a bank recharge credited to a card, keyed by the card's
// control number. BankRef is the bank side reference and makes the
// credit idempotent.
type Deposit struct {
	ID            string          `json:"id"`             // Primary key
	ControlNumber string          `json:"control_number"` // FK to cards(control_number)
	Amount        decimal.Decimal `json:"amount"`
	BankRef       string          `json:"bank_ref"` // Unique
	Status        string          `json:"status"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
