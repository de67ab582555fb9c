package dispatcher

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// Store is the slice of persistence the dispatcher needs. After a
// notification is created pending, the dispatcher is the only writer
// of its status and retry counter.
type Store interface {
	PendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	MarkNotificationSent(ctx context.Context, id string) error
	BumpNotificationRetry(ctx context.Context, id string, maxRetries int) error
}

// Sender delivers one notification over one channel. Applies reports
// whether the channel can reach the recipient at all (an email sender
// needs an email address).
type Sender interface {
	Name() string
	Applies(recipient *models.User) bool
	Send(ctx context.Context, recipient *models.User, n *models.Notification) error
}

// Dispatcher drains pending notifications. Each round a row is either
// delivered (status sent, retries reset) or its retry counter goes up;
// at MaxRetries the row is failed permanently. Delivery never touches
// cards or transactions.
type Dispatcher struct {
	store      Store
	senders    []Sender
	MaxRetries int
	Batch      int
	Interval   time.Duration

	wake chan struct{}
}

func New(store Store, senders ...Sender) *Dispatcher {
	return &Dispatcher{
		store:      store,
		senders:    senders,
		MaxRetries: 3,
		Batch:      100,
		Interval:   30 * time.Second,
		wake:       make(chan struct{}, 1),
	}
}

// Wake triggers an immediate round. Safe from any goroutine; used by
// the NATS notify.created subscription.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done. A wake event short-circuits the wait.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		d.ProcessPending(ctx)

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
	}
}

// ProcessPending runs one delivery round over the current pending set.
func (d *Dispatcher) ProcessPending(ctx context.Context) {
	pending, err := d.store.PendingNotifications(ctx, d.Batch)
	if err != nil {
		log.Errorf("Error fetching pending notifications %s", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Infof("processing %d pending notifications", len(pending))

	for _, n := range pending {
		if err := d.deliver(ctx, n); err != nil {
			log.Errorf("Failed to send notification %s, attempt %d: %s", n.ID, n.RetryCount+1, err)
			if err := d.store.BumpNotificationRetry(ctx, n.ID, d.MaxRetries); err != nil {
				log.Errorf("Error updating retry count for %s: %s", n.ID, err)
			}
			continue
		}

		if err := d.store.MarkNotificationSent(ctx, n.ID); err != nil {
			log.Errorf("Error marking notification %s sent: %s", n.ID, err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) error {
	recipient, err := d.store.UserByID(ctx, n.RecipientID)
	if err != nil {
		return err
	}
	if recipient == nil {
		// Recipient removed after the notification was queued; nothing
		// left to deliver.
		return nil
	}

	for _, s := range d.senders {
		if !s.Applies(recipient) {
			continue
		}
		if err := s.Send(ctx, recipient, n); err != nil {
			return err
		}
		log.Infof("notification %s delivered via %s", n.ID, s.Name())
	}
	return nil
}
