package comm

import "time"

// NATS topics shared between the services.
const (
	TopicNotifyCreated = "notify.created"
	TopicNotifyPush    = "notify.push"
)

// NotifyCreated wakes the dispatcher after the canteen service
// commits new pending notifications.
type NotifyCreated struct {
	NotificationIds []string  `json:"notification_ids"`
	Source          string    `json:"source"` // "scan" or "deposit"
	Timestamp       time.Time `json:"timestamp"`
}

// PushMessage is what the dispatcher hands to the push gateway
// for delivery to a connected client.
type PushMessage struct {
	NotificationId string    `json:"notification_id"`
	RecipientId    string    `json:"recipient_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
}

// ServiceHeartbeat is published by long running workers so the
// control plane can see them.
type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}
