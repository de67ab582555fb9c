package models

import "time"

// Notification delivery states. The canteen service only ever writes
// pending rows; the dispatcher owns every transition after that.
const (
	NotifyPending = "pending"
	NotifySent    = "sent"
	NotifyFailed  = "failed"
)

const (
	NotifyTypeTransaction = "transaction"
	NotifyTypeSystem      = "system"
	NotifyTypeReminder    = "reminder"
	NotifyTypeMessage     = "message"
)

type Notification struct {
	ID            string    `json:"id"`           // Primary key
	RecipientID   string    `json:"recipient_id"` // FK to users(id)
	TransactionID string    `json:"transaction_id,omitempty"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	RetryCount    int       `json:"retry_count"`
	CreatedAt     time.Time `json:"created_at"`
}
