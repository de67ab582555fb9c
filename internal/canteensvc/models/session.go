package models

import "time"

// Session lifecycle. Only active -> completed is ever produced;
// cancelled stays in the set for forward compatibility.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// Meal periods a session can cover.
const (
	SessionBreakfast = "breakfast"
	SessionLunch     = "lunch"
	SessionDinner    = "dinner"
)

type ScanSession struct {
	ID         string     `json:"id"`          // Primary key
	OperatorID string     `json:"operator_id"` // FK to users(id), role operator
	Type       string     `json:"type"`        // breakfast, lunch, dinner
	Status     string     `json:"status"`
	StartAt    time.Time  `json:"start_at"`
	EndAt      *time.Time `json:"end_at,omitempty"` // Null until completed
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ValidSessionType reports whether t is a known meal period.
func ValidSessionType(t string) bool {
	return t == SessionBreakfast || t == SessionLunch || t == SessionDinner
}
