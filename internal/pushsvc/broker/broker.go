package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/comm"
	"github.com/smms/canteen-services/internal/pushsvc/ws"
)

// Broker consumes push messages from the dispatcher and fans them out
// to the recipient's connected sockets.
type Broker struct {
	Conn *nats.Conn
	Ws   *ws.Ws
}

func NewBroker(conn *nats.Conn, s *ws.Ws) *Broker {
	return &Broker{Conn: conn, Ws: s}
}

// SubscribePush starts consuming notify.push. A queue group keeps one
// gateway instance from double-delivering to the same socket set.
func (b *Broker) SubscribePush(queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(comm.TopicNotifyPush, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := comm.PushMessage{}
	if err := json.Unmarshal(msgNat.Data, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	delivered := b.Ws.Deliver(msg)
	log.Infof("push %s for user %s delivered to %d sockets", msg.NotificationId, msg.RecipientId, delivered)
}
