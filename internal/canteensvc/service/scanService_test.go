package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

type capturingPublisher struct {
	mu      sync.Mutex
	created [][]string
	sources []string
}

func (p *capturingPublisher) NotificationsCreated(ids []string, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, ids)
	p.sources = append(p.sources, source)
}

type scanFixture struct {
	store    *store.Memory
	scans    *ScanService
	sessions *SessionService
	notify   *capturingPublisher

	operator Actor
	session  *models.ScanSession
}

// newScanFixture seeds an operator with an active lunch session, a
// student cardholder with two guardians, a staff cardholder, and one
// canteen item priced 300.
func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()

	mem := store.NewMemory()
	notify := &capturingPublisher{}
	ledger := NewLedger(decimal.NewFromInt(500), 10)

	mem.SeedUser(&models.User{ID: "op-1", Role: models.RoleOperator, FirstName: "Neema"})
	mem.SeedUser(&models.User{ID: "stu-1", Role: models.RoleStudent, FirstName: "Asha"})
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent, FirstName: "Joseph", Email: "joseph@example.com"})
	mem.SeedUser(&models.User{ID: "par-2", Role: models.RoleParent, FirstName: "Grace"})
	mem.SeedUser(&models.User{ID: "staff-1", Role: models.RoleStaff, FirstName: "Upendo"})
	mem.SeedGuardian("stu-1", "par-1")
	mem.SeedGuardian("stu-1", "par-2")

	mem.SeedItem(&models.CanteenItem{ID: "item-1", Name: "Rice and Beans", Price: decimal.NewFromInt(300)})

	f := &scanFixture{
		store:    mem,
		scans:    NewScanService(mem, ledger, notify),
		sessions: NewSessionService(mem, 10, 20, 50),
		notify:   notify,
		operator: Actor{ID: "op-1", Role: models.RoleOperator},
	}

	session, err := f.sessions.Start(context.Background(), f.operator, models.SessionLunch)
	require.NoError(t, err)
	f.session = session

	return f
}

func (f *scanFixture) seedStudentCard(balance int64, count int) {
	f.store.SeedCard(&models.Card{
		ID:                "card-stu",
		CardNumber:        "CARD-001",
		ControlNumber:     "CTRL-001",
		HolderID:          "stu-1",
		Balance:           decimal.NewFromInt(balance),
		InsufficientCount: count,
		IsActive:          true,
	})
}

func (f *scanFixture) seedStaffCard(balance int64) {
	f.store.SeedCard(&models.Card{
		ID:            "card-staff",
		CardNumber:    "CARD-002",
		ControlNumber: "CTRL-002",
		HolderID:      "staff-1",
		Balance:       decimal.NewFromInt(balance),
		IsActive:      true,
	})
}

func (f *scanFixture) scanRequest() ScanRequest {
	return ScanRequest{SessionID: f.session.ID, CardNumber: "CARD-001", ItemID: "item-1"}
}

func TestScan_SufficientBalance(t *testing.T) {
	// GIVEN: card balance 1000, item price 300
	// WHEN: the card is scanned
	// THEN: balance 700, one successful transaction, one notification
	//       per guardian

	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)
	ctx := context.Background()

	scan, err := f.scans.Scan(ctx, f.operator, f.scanRequest())
	require.NoError(t, err)
	require.NotNil(t, scan)
	assert.Equal(t, f.session.ID, scan.SessionID)
	assert.Equal(t, "stu-1", scan.HolderID)
	assert.Equal(t, "item-1", scan.ItemID)

	card := f.store.CardByNumber("CARD-001")
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(700)), "balance should be 700, got %s", card.Balance)
	assert.Equal(t, 0, card.InsufficientCount)

	txs := f.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxSuccessful, txs[0].Status)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(300)))

	notifs := f.store.Notifications()
	require.Len(t, notifs, 2, "one notification per guardian")
	recipients := []string{notifs[0].RecipientID, notifs[1].RecipientID}
	assert.ElementsMatch(t, []string{"par-1", "par-2"}, recipients)
	for _, n := range notifs {
		assert.Equal(t, models.NotifyPending, n.Status)
		assert.Equal(t, models.NotifyTypeTransaction, n.Type)
		assert.Equal(t, txs[0].ID, n.TransactionID)
	}

	require.Len(t, f.notify.created, 1, "dispatcher should be woken once")
	assert.Equal(t, "scan", f.notify.sources[0])
	assert.Len(t, f.notify.created[0], 2)
}

func TestScan_InsufficientBalance_Penalty(t *testing.T) {
	// GIVEN: card balance 100, item price 300
	// WHEN: the card is scanned
	// THEN: the meal is allowed, debited 800, balance -700, counter 1

	f := newScanFixture(t)
	f.seedStudentCard(100, 0)
	ctx := context.Background()

	_, err := f.scans.Scan(ctx, f.operator, f.scanRequest())
	require.NoError(t, err)

	card := f.store.CardByNumber("CARD-001")
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(-700)), "balance should be -700, got %s", card.Balance)
	assert.Equal(t, 1, card.InsufficientCount)

	txs := f.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxPenalty, txs[0].Status)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(800)), "amount includes the surcharge")

	notifs := f.store.Notifications()
	require.NotEmpty(t, notifs)
	assert.Equal(t, "WARNING: Transaction Penalty", notifs[0].Title)
}

func TestScan_BlockedCard_NothingMutated(t *testing.T) {
	// GIVEN: a card at the penalty threshold
	// WHEN: it is scanned
	// THEN: the scan is refused and no state changes at all

	f := newScanFixture(t)
	f.seedStudentCard(2000, 10)
	ctx := context.Background()

	scan, err := f.scans.Scan(ctx, f.operator, f.scanRequest())
	assert.Nil(t, scan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardBlocked)

	var blocked *BlockedCardError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "CARD-001", blocked.CardNumber)
	assert.Equal(t, 10, blocked.Count)

	card := f.store.CardByNumber("CARD-001")
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(2000)), "no debit on a blocked card")
	assert.Equal(t, 10, card.InsufficientCount)
	assert.Empty(t, f.store.Scans())
	assert.Empty(t, f.store.Transactions())
	assert.Empty(t, f.store.Notifications())
	assert.Empty(t, f.notify.created)
}

func TestScan_PenaltyReachingThreshold_BlockNotice(t *testing.T) {
	// The penalty that lands on the threshold warns the guardians the
	// card is now blocked instead of counting down.

	f := newScanFixture(t)
	f.seedStudentCard(0, 9)
	ctx := context.Background()

	_, err := f.scans.Scan(ctx, f.operator, f.scanRequest())
	require.NoError(t, err)

	card := f.store.CardByNumber("CARD-001")
	assert.Equal(t, 10, card.InsufficientCount)

	notifs := f.store.Notifications()
	require.NotEmpty(t, notifs)
	assert.Equal(t, "Asha's Card Blocked", notifs[0].Title)
}

func TestScan_DuplicatePurchase_Rejected(t *testing.T) {
	// GIVEN: the same item already purchased in this session
	// WHEN: the card is scanned again for it
	// THEN: conflict, and only one scan/transaction pair exists

	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)
	ctx := context.Background()

	_, err := f.scans.Scan(ctx, f.operator, f.scanRequest())
	require.NoError(t, err)

	_, err = f.scans.Scan(ctx, f.operator, f.scanRequest())
	assert.ErrorIs(t, err, ErrDuplicatePurchase)

	assert.Len(t, f.store.Scans(), 1)
	assert.Len(t, f.store.Transactions(), 1)

	card := f.store.CardByNumber("CARD-001")
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(700)), "second scan must not debit")
}

func TestScan_OperatorRoleRequired(t *testing.T) {
	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)

	for _, role := range []string{models.RoleAdmin, models.RoleParent, models.RoleStudent, models.RoleStaff} {
		_, err := f.scans.Scan(context.Background(), Actor{ID: "x", Role: role}, f.scanRequest())
		assert.ErrorIs(t, err, ErrOperatorOnly, "role %s must not scan", role)
	}
	assert.Empty(t, f.store.Transactions())
}

func TestScan_SessionValidation(t *testing.T) {
	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)
	ctx := context.Background()

	// unknown session
	req := f.scanRequest()
	req.SessionID = "no-such-session"
	_, err := f.scans.Scan(ctx, f.operator, req)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// completed session
	_, err = f.sessions.End(ctx, f.operator, f.session.ID)
	require.NoError(t, err)
	_, err = f.scans.Scan(ctx, f.operator, f.scanRequest())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScan_CardValidation(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	// unknown card
	req := f.scanRequest()
	req.CardNumber = "CARD-404"
	_, err := f.scans.Scan(ctx, f.operator, req)
	assert.ErrorIs(t, err, ErrCardNotFound)

	// inactive card
	f.store.SeedCard(&models.Card{
		ID:            "card-stu",
		CardNumber:    "CARD-001",
		ControlNumber: "CTRL-001",
		HolderID:      "stu-1",
		Balance:       decimal.NewFromInt(1000),
		IsActive:      false,
	})
	_, err = f.scans.Scan(ctx, f.operator, f.scanRequest())
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestScan_ItemValidation(t *testing.T) {
	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)

	req := f.scanRequest()
	req.ItemID = "item-404"
	_, err := f.scans.Scan(context.Background(), f.operator, req)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestScan_ValidationOrder_SessionBeforeCard(t *testing.T) {
	// Both the session and the card are bad; the session error wins.

	f := newScanFixture(t)
	_, err := f.scans.Scan(context.Background(), f.operator,
		ScanRequest{SessionID: "no-such-session", CardNumber: "CARD-404", ItemID: "item-404"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestScan_StaffNotifiedDirectly(t *testing.T) {
	// Staff answer for themselves: the notice goes to the holder, not
	// to guardians.

	f := newScanFixture(t)
	f.seedStaffCard(1000)
	ctx := context.Background()

	req := ScanRequest{SessionID: f.session.ID, CardNumber: "CARD-002", ItemID: "item-1"}
	_, err := f.scans.Scan(ctx, f.operator, req)
	require.NoError(t, err)

	notifs := f.store.Notifications()
	require.Len(t, notifs, 1)
	assert.Equal(t, "staff-1", notifs[0].RecipientID)
}

func TestScan_ConcurrentDistinctItems_NoLostUpdates(t *testing.T) {
	// GIVEN: balance 10000 and ten affordable distinct items
	// WHEN: all ten are scanned concurrently
	// THEN: the balance reflects every debit

	f := newScanFixture(t)
	f.seedStudentCard(10000, 0)
	ctx := context.Background()

	const workers = 10
	for i := 0; i < workers; i++ {
		f.store.SeedItem(&models.CanteenItem{
			ID:    fmt.Sprintf("item-c%d", i),
			Name:  fmt.Sprintf("Snack %d", i),
			Price: decimal.NewFromInt(100),
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := ScanRequest{
				SessionID:  f.session.ID,
				CardNumber: "CARD-001",
				ItemID:     fmt.Sprintf("item-c%d", i),
			}
			_, err := f.scans.Scan(ctx, f.operator, req)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	card := f.store.CardByNumber("CARD-001")
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(9000)),
		"expected 9000 after ten 100 debits, got %s", card.Balance)
	assert.Equal(t, 0, card.InsufficientCount)
	assert.Len(t, f.store.Transactions(), workers)
}

func TestScan_TimestampsSet(t *testing.T) {
	f := newScanFixture(t)
	f.seedStudentCard(1000, 0)

	before := time.Now().UTC()
	scan, err := f.scans.Scan(context.Background(), f.operator, f.scanRequest())
	require.NoError(t, err)

	assert.False(t, scan.ScannedAt.Before(before))
	assert.NotEmpty(t, scan.ID)
}
