package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// Postgres backs the Store with pgx. The scan unit of work is a real
// database transaction; the card row is taken FOR UPDATE so two scans
// of the same card serialize on the row lock while different cards
// proceed in parallel.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx ScanTx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	q pgx.Tx
}

const sessionCols = `id, operator_id, type, status, start_at, end_at, updated_at`

func scanSessionRow(row pgx.Row) (*models.ScanSession, error) {
	var s models.ScanSession
	err := row.Scan(&s.ID, &s.OperatorID, &s.Type, &s.Status, &s.StartAt, &s.EndAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return &s, nil
}

func (t *pgTx) SessionByID(ctx context.Context, id string) (*models.ScanSession, error) {
	row := t.q.QueryRow(ctx, `
		SELECT `+sessionCols+`
		FROM scan_sessions
		WHERE id = $1
	`, id)
	return scanSessionRow(row)
}

const cardCols = `id, card_number, control_number, holder_id, balance,
	insufficient_count, is_active, issued_at, created_at, updated_at`

func scanCardRow(row pgx.Row) (*models.Card, error) {
	var c models.Card
	err := row.Scan(&c.ID, &c.CardNumber, &c.ControlNumber, &c.HolderID, &c.Balance,
		&c.InsufficientCount, &c.IsActive, &c.IssuedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan card row: %w", err)
	}
	return &c, nil
}

func (t *pgTx) CardByNumberForUpdate(ctx context.Context, cardNumber string) (*models.Card, error) {
	row := t.q.QueryRow(ctx, `
		SELECT `+cardCols+`
		FROM cards
		WHERE card_number = $1 AND is_active = true
		FOR UPDATE
	`, cardNumber)
	return scanCardRow(row)
}

func (t *pgTx) CardByControlNumberForUpdate(ctx context.Context, controlNumber string) (*models.Card, error) {
	row := t.q.QueryRow(ctx, `
		SELECT `+cardCols+`
		FROM cards
		WHERE control_number = $1
		FOR UPDATE
	`, controlNumber)
	return scanCardRow(row)
}

func (t *pgTx) ItemByID(ctx context.Context, id string) (*models.CanteenItem, error) {
	var i models.CanteenItem
	err := t.q.QueryRow(ctx, `
		SELECT id, name, price, created_at, updated_at
		FROM canteen_items
		WHERE id = $1
	`, id).Scan(&i.ID, &i.Name, &i.Price, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return &i, nil
}

const userCols = `id, role, first_name, COALESCE(middle_name, ''), last_name,
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(fcm_token, ''), created_at, updated_at`

func (t *pgTx) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := t.q.QueryRow(ctx, `
		SELECT `+userCols+`
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Role, &u.FirstName, &u.MiddleName, &u.LastName,
		&u.Email, &u.Phone, &u.FcmToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (t *pgTx) Guardians(ctx context.Context, holderID string) ([]*models.User, error) {
	rows, err := t.q.Query(ctx, `
		SELECT `+userCols+`
		FROM users u
		JOIN guardian_links gl ON gl.guardian_id = u.id
		WHERE gl.holder_id = $1
	`, holderID)
	if err != nil {
		return nil, fmt.Errorf("get guardians: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Role, &u.FirstName, &u.MiddleName, &u.LastName,
			&u.Email, &u.Phone, &u.FcmToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan guardian row: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (t *pgTx) PurchaseExists(ctx context.Context, sessionID, holderID, cardID, itemID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM scanned_data
			WHERE session_id = $1 AND holder_id = $2 AND card_id = $3 AND item_id = $4
		)
	`, sessionID, holderID, cardID, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("purchase exists check: %w", err)
	}
	return exists, nil
}

func (t *pgTx) DepositRefExists(ctx context.Context, bankRef string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM deposits WHERE bank_ref = $1)
	`, bankRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("deposit ref check: %w", err)
	}
	return exists, nil
}

func (t *pgTx) UpdateCard(ctx context.Context, card *models.Card) error {
	_, err := t.q.Exec(ctx, `
		UPDATE cards
		SET balance = $2, insufficient_count = $3, updated_at = now()
		WHERE id = $1
	`, card.ID, card.Balance, card.InsufficientCount)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

func (t *pgTx) InsertScan(ctx context.Context, scan *models.ScannedData) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO scanned_data (id, session_id, holder_id, card_id, item_id, scanned_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, scan.ID, scan.SessionID, scan.HolderID, scan.CardID, scan.ItemID, scan.ScannedAt)
	if err != nil {
		return fmt.Errorf("insert scanned data: %w", err)
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO transactions (id, holder_id, card_id, item_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tx.ID, tx.HolderID, tx.CardID, tx.ItemID, tx.Amount, tx.Status, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *pgTx) InsertDeposit(ctx context.Context, dep *models.Deposit) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO deposits (id, control_number, amount, bank_ref, status, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, dep.ID, dep.ControlNumber, dep.Amount, dep.BankRef, dep.Status, dep.ProcessedAt, dep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func (t *pgTx) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, transaction_id, title, message, status, type, retry_count, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
	`, n.ID, n.RecipientID, n.TransactionID, n.Title, n.Message, n.Status, n.Type, n.RetryCount, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Session operations.

func (p *Postgres) CreateSessionIfNoneActive(ctx context.Context, session *models.ScanSession) (bool, error) {
	// Atomic check-then-create: the insert only lands when the
	// operator has no active session at commit time.
	res, err := p.pool.Exec(ctx, `
		INSERT INTO scan_sessions (id, operator_id, type, status, start_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM scan_sessions WHERE operator_id = $2 AND status = $6
		)
	`, session.ID, session.OperatorID, session.Type, session.Status, session.StartAt, models.SessionActive)
	if err != nil {
		return false, fmt.Errorf("create session: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func (p *Postgres) CompleteSession(ctx context.Context, sessionID, operatorID string, endAt time.Time) (*models.ScanSession, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE scan_sessions
		SET status = $3, end_at = $4, updated_at = $4
		WHERE id = $1 AND operator_id = $2 AND status = $5
		RETURNING `+sessionCols+`
	`, sessionID, operatorID, models.SessionCompleted, endAt, models.SessionActive)
	return scanSessionRow(row)
}

func (p *Postgres) ActiveSessionForOperator(ctx context.Context, operatorID string) (*models.ScanSession, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+sessionCols+`
		FROM scan_sessions
		WHERE operator_id = $1 AND status = $2
		LIMIT 1
	`, operatorID, models.SessionActive)
	return scanSessionRow(row)
}

func (p *Postgres) listSessions(ctx context.Context, query string, args ...any) ([]*models.ScanSession, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.ScanSession
	for rows.Next() {
		var s models.ScanSession
		if err := rows.Scan(&s.ID, &s.OperatorID, &s.Type, &s.Status, &s.StartAt, &s.EndAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *Postgres) SessionsForOperator(ctx context.Context, operatorID string, limit int) ([]*models.ScanSession, error) {
	return p.listSessions(ctx, `
		SELECT `+sessionCols+`
		FROM scan_sessions
		WHERE operator_id = $1
		ORDER BY status, start_at DESC
		LIMIT $2
	`, operatorID, limit)
}

func (p *Postgres) AllSessions(ctx context.Context, limit int) ([]*models.ScanSession, error) {
	return p.listSessions(ctx, `
		SELECT `+sessionCols+`
		FROM scan_sessions
		ORDER BY status, start_at DESC
		LIMIT $1
	`, limit)
}

func (p *Postgres) ScansForSession(ctx context.Context, sessionID string, limit int) ([]*models.ScannedData, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, holder_id, card_id, COALESCE(item_id, ''), scanned_at
		FROM scanned_data
		WHERE session_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scanned data: %w", err)
	}
	defer rows.Close()

	var out []*models.ScannedData
	for rows.Next() {
		var s models.ScannedData
		if err := rows.Scan(&s.ID, &s.SessionID, &s.HolderID, &s.CardID, &s.ItemID, &s.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan scanned data row: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := p.pool.QueryRow(ctx, `
		SELECT `+userCols+`
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Role, &u.FirstName, &u.MiddleName, &u.LastName,
		&u.Email, &u.Phone, &u.FcmToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// Notification queue.

func (p *Postgres) PendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, recipient_id, COALESCE(transaction_id, ''), title, message, status, type, retry_count, created_at
		FROM notifications
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, models.NotifyPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.TransactionID, &n.Title, &n.Message,
			&n.Status, &n.Type, &n.RetryCount, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkNotificationSent(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE notifications SET status = $2, retry_count = 0 WHERE id = $1
	`, id, models.NotifySent)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

func (p *Postgres) BumpNotificationRetry(ctx context.Context, id string, maxRetries int) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE notifications
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE status END
		WHERE id = $1
	`, id, maxRetries)
	if err != nil {
		return fmt.Errorf("bump notification retry: %w", err)
	}
	return nil
}
