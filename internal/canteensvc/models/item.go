package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CanteenItem struct {
	ID        string          `json:"id"` // Primary key
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
