package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Card struct {
	ID                string          `json:"id"`             // Primary key
	CardNumber        string          `json:"card_number"`    // Unique RFID number
	ControlNumber     string          `json:"control_number"` // Unique bank deposit reference
	HolderID          string          `json:"holder_id"`      // FK to users(id), student or staff
	Balance           decimal.Decimal `json:"balance"`
	InsufficientCount int             `json:"insufficient_count"` // Penalties accumulated, never auto-reset
	IsActive          bool            `json:"is_active"`
	IssuedAt          *time.Time      `json:"issued_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
