package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/comm"
)

// PushSender hands the notification to the push gateway over NATS.
// The gateway forwards it to the recipient's connected clients.
type PushSender struct {
	Conn *nats.Conn
}

func NewPushSender(nc *nats.Conn) *PushSender {
	return &PushSender{Conn: nc}
}

func (s *PushSender) Name() string { return "push" }

func (s *PushSender) Applies(recipient *models.User) bool { return true }

func (s *PushSender) Send(ctx context.Context, recipient *models.User, n *models.Notification) error {
	payload, err := json.Marshal(comm.PushMessage{
		NotificationId: n.ID,
		RecipientId:    recipient.ID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.Conn.Publish(comm.TopicNotifyPush, payload)
}
