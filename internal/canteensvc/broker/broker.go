package broker

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/comm"
)

// Broker publishes canteen events to NATS. Publishing is best effort;
// the dispatcher also polls, so a lost wake-up only delays delivery.
type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// NotificationsCreated tells the dispatcher new pending rows exist.
func (b *Broker) NotificationsCreated(ids []string, source string) {
	payload, err := json.Marshal(comm.NotifyCreated{
		NotificationIds: ids,
		Source:          source,
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		log.Errorf("Error marshaling notify event %s", err)
		return
	}

	if err := b.Conn.Publish(comm.TopicNotifyCreated, payload); err != nil {
		log.Errorf("Error publishing to %s: %s", comm.TopicNotifyCreated, err)
	}
}
