package store

import (
	"context"
	"time"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// ScanTx is the unit-of-work surface the scan and deposit flows run
// on. Everything called through it happens inside one transaction
// with the touched card row held exclusively, so the duplicate check
// and the balance read-modify-write cannot interleave with a
// concurrent scan of the same card.
//
// Lookups return (nil, nil) when the row is absent.
type ScanTx interface {
	SessionByID(ctx context.Context, id string) (*models.ScanSession, error)
	CardByNumberForUpdate(ctx context.Context, cardNumber string) (*models.Card, error)
	CardByControlNumberForUpdate(ctx context.Context, controlNumber string) (*models.Card, error)
	ItemByID(ctx context.Context, id string) (*models.CanteenItem, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	Guardians(ctx context.Context, holderID string) ([]*models.User, error)
	PurchaseExists(ctx context.Context, sessionID, holderID, cardID, itemID string) (bool, error)
	DepositRefExists(ctx context.Context, bankRef string) (bool, error)

	UpdateCard(ctx context.Context, card *models.Card) error
	InsertScan(ctx context.Context, scan *models.ScannedData) error
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	InsertDeposit(ctx context.Context, dep *models.Deposit) error
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Store is the persistence boundary of the canteen service. The
// Postgres implementation backs production; the memory implementation
// backs tests.
type Store interface {
	// InTx runs fn in one atomic unit. An error from fn rolls every
	// write back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx ScanTx) error) error

	// CreateSessionIfNoneActive atomically checks that the operator
	// has no active session and inserts the new one. Returns false
	// without inserting when an active session already exists.
	CreateSessionIfNoneActive(ctx context.Context, session *models.ScanSession) (bool, error)

	// CompleteSession moves the operator's active session to
	// completed. Returns (nil, nil) when no active session with that
	// id belongs to the operator.
	CompleteSession(ctx context.Context, sessionID, operatorID string, endAt time.Time) (*models.ScanSession, error)

	ActiveSessionForOperator(ctx context.Context, operatorID string) (*models.ScanSession, error)
	SessionsForOperator(ctx context.Context, operatorID string, limit int) ([]*models.ScanSession, error)
	AllSessions(ctx context.Context, limit int) ([]*models.ScanSession, error)
	ScansForSession(ctx context.Context, sessionID string, limit int) ([]*models.ScannedData, error)

	// UserByID resolves a notification recipient. (nil, nil) when
	// absent.
	UserByID(ctx context.Context, id string) (*models.User, error)

	// Notification queue, consumed by the dispatcher only.
	PendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id string) error

	// BumpNotificationRetry increments the retry counter and flips the
	// row to failed once maxRetries is reached.
	BumpNotificationRetry(ctx context.Context, id string, maxRetries int) error
}
