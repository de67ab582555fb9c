package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// Memory is an in-memory Store used by tests and local development.
// One mutex guards everything, so each unit of work is fully
// serialized, which satisfies the per-card exclusivity the scan flow
// needs. Writes inside InTx are staged and applied only when fn
// succeeds.
type Memory struct {
	mu sync.Mutex

	users         map[string]*models.User
	cards         map[string]*models.Card // by id
	cardsByNumber map[string]string       // card_number -> id
	cardsByCtrl   map[string]string       // control_number -> id
	items         map[string]*models.CanteenItem
	sessions      map[string]*models.ScanSession
	scans         []*models.ScannedData
	transactions  []*models.Transaction
	deposits      []*models.Deposit
	notifications map[string]*models.Notification
	notifyOrder   []string
	guardians     map[string][]string // holder id -> guardian ids
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*models.User),
		cards:         make(map[string]*models.Card),
		cardsByNumber: make(map[string]string),
		cardsByCtrl:   make(map[string]string),
		items:         make(map[string]*models.CanteenItem),
		sessions:      make(map[string]*models.ScanSession),
		notifications: make(map[string]*models.Notification),
		guardians:     make(map[string][]string),
	}
}

// Seed helpers, test setup only.

func (m *Memory) SeedUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *Memory) SeedCard(c *models.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cards[c.ID] = &cp
	m.cardsByNumber[c.CardNumber] = c.ID
	m.cardsByCtrl[c.ControlNumber] = c.ID
}

func (m *Memory) SeedItem(i *models.CanteenItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	m.items[i.ID] = &cp
}

func (m *Memory) SeedGuardian(holderID, guardianID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guardians[holderID] = append(m.guardians[holderID], guardianID)
}

func (m *Memory) SeedNotification(n *models.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	m.notifyOrder = append(m.notifyOrder, n.ID)
}

// Inspection helpers, test assertions only.

func (m *Memory) CardByNumber(number string) *models.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.cardsByNumber[number]
	if !ok {
		return nil
	}
	cp := *m.cards[id]
	return &cp
}

func (m *Memory) Transactions() []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out
}

func (m *Memory) Scans() []*models.ScannedData {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ScannedData, len(m.scans))
	copy(out, m.scans)
	return out
}

func (m *Memory) Notifications() []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Notification, 0, len(m.notifyOrder))
	for _, id := range m.notifyOrder {
		cp := *m.notifications[id]
		out = append(out, &cp)
	}
	return out
}

func (m *Memory) Deposits() []*models.Deposit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Deposit, len(m.deposits))
	copy(out, m.deposits)
	return out
}

// memTx stages writes until the unit of work commits.
type memTx struct {
	m *Memory

	cardUpdates   map[string]*models.Card
	scans         []*models.ScannedData
	transactions  []*models.Transaction
	deposits      []*models.Deposit
	notifications []*models.Notification
}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx ScanTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{m: m, cardUpdates: make(map[string]*models.Card)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	// commit
	for id, card := range tx.cardUpdates {
		m.cards[id] = card
	}
	m.scans = append(m.scans, tx.scans...)
	m.transactions = append(m.transactions, tx.transactions...)
	m.deposits = append(m.deposits, tx.deposits...)
	for _, n := range tx.notifications {
		m.notifications[n.ID] = n
		m.notifyOrder = append(m.notifyOrder, n.ID)
	}
	return nil
}

func (t *memTx) SessionByID(ctx context.Context, id string) (*models.ScanSession, error) {
	s, ok := t.m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) cardByID(id string) *models.Card {
	if staged, ok := t.cardUpdates[id]; ok {
		cp := *staged
		return &cp
	}
	c, ok := t.m.cards[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (t *memTx) CardByNumberForUpdate(ctx context.Context, cardNumber string) (*models.Card, error) {
	id, ok := t.m.cardsByNumber[cardNumber]
	if !ok {
		return nil, nil
	}
	card := t.cardByID(id)
	if card == nil || !card.IsActive {
		return nil, nil
	}
	return card, nil
}

func (t *memTx) CardByControlNumberForUpdate(ctx context.Context, controlNumber string) (*models.Card, error) {
	id, ok := t.m.cardsByCtrl[controlNumber]
	if !ok {
		return nil, nil
	}
	return t.cardByID(id), nil
}

func (t *memTx) ItemByID(ctx context.Context, id string) (*models.CanteenItem, error) {
	i, ok := t.m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (t *memTx) UserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := t.m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (t *memTx) Guardians(ctx context.Context, holderID string) ([]*models.User, error) {
	var out []*models.User
	for _, gid := range t.m.guardians[holderID] {
		if g, ok := t.m.users[gid]; ok {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *memTx) PurchaseExists(ctx context.Context, sessionID, holderID, cardID, itemID string) (bool, error) {
	match := func(s *models.ScannedData) bool {
		return s.SessionID == sessionID && s.HolderID == holderID &&
			s.CardID == cardID && s.ItemID == itemID
	}
	for _, s := range t.m.scans {
		if match(s) {
			return true, nil
		}
	}
	for _, s := range t.scans {
		if match(s) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DepositRefExists(ctx context.Context, bankRef string) (bool, error) {
	for _, d := range t.m.deposits {
		if d.BankRef == bankRef {
			return true, nil
		}
	}
	for _, d := range t.deposits {
		if d.BankRef == bankRef {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) UpdateCard(ctx context.Context, card *models.Card) error {
	cp := *card
	t.cardUpdates[card.ID] = &cp
	return nil
}

func (t *memTx) InsertScan(ctx context.Context, scan *models.ScannedData) error {
	cp := *scan
	t.scans = append(t.scans, &cp)
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	cp := *tx
	t.transactions = append(t.transactions, &cp)
	return nil
}

func (t *memTx) InsertDeposit(ctx context.Context, dep *models.Deposit) error {
	cp := *dep
	t.deposits = append(t.deposits, &cp)
	return nil
}

func (t *memTx) InsertNotification(ctx context.Context, n *models.Notification) error {
	cp := *n
	t.notifications = append(t.notifications, &cp)
	return nil
}

// Session operations.

func (m *Memory) CreateSessionIfNoneActive(ctx context.Context, session *models.ScanSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.OperatorID == session.OperatorID && s.Status == models.SessionActive {
			return false, nil
		}
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return true, nil
}

func (m *Memory) CompleteSession(ctx context.Context, sessionID, operatorID string, endAt time.Time) (*models.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.OperatorID != operatorID || s.Status != models.SessionActive {
		return nil, nil
	}
	s.Status = models.SessionCompleted
	end := endAt
	s.EndAt = &end
	s.UpdatedAt = endAt
	cp := *s
	return &cp, nil
}

func (m *Memory) ActiveSessionForOperator(ctx context.Context, operatorID string) (*models.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.OperatorID == operatorID && s.Status == models.SessionActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func sortSessions(out []*models.ScanSession) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].StartAt.After(out[j].StartAt)
	})
}

func (m *Memory) SessionsForOperator(ctx context.Context, operatorID string, limit int) ([]*models.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScanSession
	for _, s := range m.sessions {
		if s.OperatorID == operatorID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSessions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) AllSessions(ctx context.Context, limit int) ([]*models.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScanSession
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sortSessions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ScansForSession(ctx context.Context, sessionID string, limit int) ([]*models.ScannedData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ScannedData
	for _, s := range m.scans {
		if s.SessionID == sessionID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Notification queue.

func (m *Memory) PendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, id := range m.notifyOrder {
		n := m.notifications[id]
		if n.Status == models.NotifyPending {
			cp := *n
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkNotificationSent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.Status = models.NotifySent
		n.RetryCount = 0
	}
	return nil
}

func (m *Memory) BumpNotificationRetry(ctx context.Context, id string, maxRetries int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		n.RetryCount++
		if n.RetryCount >= maxRetries {
			n.Status = models.NotifyFailed
		}
	}
	return nil
}
