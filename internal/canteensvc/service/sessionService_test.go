package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

func newSessionService() (*SessionService, *store.Memory) {
	mem := store.NewMemory()
	return NewSessionService(mem, 10, 20, 50), mem
}

func TestSessionStart(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}

	session, err := svc.Start(context.Background(), op, models.SessionBreakfast)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "op-1", session.OperatorID)
	assert.Equal(t, models.SessionBreakfast, session.Type)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.False(t, session.StartAt.IsZero())
	assert.Nil(t, session.EndAt)
}

func TestSessionStart_SecondActiveConflicts(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	_, err := svc.Start(ctx, op, models.SessionLunch)
	require.NoError(t, err)

	_, err = svc.Start(ctx, op, models.SessionDinner)
	assert.ErrorIs(t, err, ErrSessionConflict)

	// a different operator is unaffected
	_, err = svc.Start(ctx, Actor{ID: "op-2", Role: models.RoleOperator}, models.SessionLunch)
	assert.NoError(t, err)
}

func TestSessionStart_InvalidType(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}

	for _, typ := range []string{"", "brunch", "LUNCH"} {
		_, err := svc.Start(context.Background(), op, typ)
		assert.ErrorIs(t, err, ErrInvalidInput, "type %q", typ)
	}
}

func TestSessionStart_OperatorOnly(t *testing.T) {
	svc, _ := newSessionService()
	_, err := svc.Start(context.Background(), Actor{ID: "a-1", Role: models.RoleAdmin}, models.SessionLunch)
	assert.ErrorIs(t, err, ErrOperatorOnly)
}

func TestSessionEnd(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	session, err := svc.Start(ctx, op, models.SessionLunch)
	require.NoError(t, err)

	ended, err := svc.End(ctx, op, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, ended.Status)
	require.NotNil(t, ended.EndAt)
	assert.False(t, ended.EndAt.Before(session.StartAt))

	// ending twice is not found, the session is no longer active
	_, err = svc.End(ctx, op, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// a new session can start once the old one completed
	_, err = svc.Start(ctx, op, models.SessionDinner)
	assert.NoError(t, err)
}

func TestSessionEnd_OtherOperatorsSession(t *testing.T) {
	svc, _ := newSessionService()
	ctx := context.Background()

	session, err := svc.Start(ctx, Actor{ID: "op-1", Role: models.RoleOperator}, models.SessionLunch)
	require.NoError(t, err)

	_, err = svc.End(ctx, Actor{ID: "op-2", Role: models.RoleOperator}, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionActive(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	_, err := svc.Active(ctx, op)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	started, err := svc.Start(ctx, op, models.SessionLunch)
	require.NoError(t, err)

	active, err := svc.Active(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, started.ID, active.ID)
}

func TestSessionList_RoleScoping(t *testing.T) {
	svc, _ := newSessionService()
	ctx := context.Background()
	op1 := Actor{ID: "op-1", Role: models.RoleOperator}
	op2 := Actor{ID: "op-2", Role: models.RoleOperator}

	s1, err := svc.Start(ctx, op1, models.SessionLunch)
	require.NoError(t, err)
	_, err = svc.Start(ctx, op2, models.SessionLunch)
	require.NoError(t, err)

	// operators see only their own
	own, err := svc.List(ctx, op1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, s1.ID, own[0].ID)

	// admins see everything
	all, err := svc.List(ctx, Actor{ID: "a-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// everyone else is refused
	_, err = svc.List(ctx, Actor{ID: "p-1", Role: models.RoleParent})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSessionList_ActiveFirst(t *testing.T) {
	svc, _ := newSessionService()
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	first, err := svc.Start(ctx, op, models.SessionBreakfast)
	require.NoError(t, err)
	_, err = svc.End(ctx, op, first.ID)
	require.NoError(t, err)

	second, err := svc.Start(ctx, op, models.SessionLunch)
	require.NoError(t, err)

	out, err := svc.List(ctx, op)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID, "active session sorts first")
	assert.Equal(t, first.ID, out[1].ID)
}

func TestSessionList_OperatorCap(t *testing.T) {
	mem := store.NewMemory()
	svc := NewSessionService(mem, 3, 20, 50)
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s, err := svc.Start(ctx, op, models.SessionLunch)
		require.NoError(t, err)
		_, err = svc.End(ctx, op, s.ID)
		require.NoError(t, err)
	}

	out, err := svc.List(ctx, op)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestSessionScans(t *testing.T) {
	mem := store.NewMemory()
	svc := NewSessionService(mem, 10, 20, 50)
	notify := &capturingPublisher{}
	scans := NewScanService(mem, NewLedger(decimal.NewFromInt(500), 10), notify)
	op := Actor{ID: "op-1", Role: models.RoleOperator}
	ctx := context.Background()

	mem.SeedUser(&models.User{ID: "op-1", Role: models.RoleOperator})
	mem.SeedUser(&models.User{ID: "staff-1", Role: models.RoleStaff, FirstName: "Upendo"})
	mem.SeedCard(&models.Card{
		ID: "card-1", CardNumber: "CARD-001", ControlNumber: "CTRL-001",
		HolderID: "staff-1", Balance: decimal.NewFromInt(5000), IsActive: true,
	})
	for i := 0; i < 3; i++ {
		mem.SeedItem(&models.CanteenItem{
			ID:    fmt.Sprintf("item-%d", i),
			Name:  fmt.Sprintf("Dish %d", i),
			Price: decimal.NewFromInt(300),
		})
	}

	session, err := svc.Start(ctx, op, models.SessionLunch)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := scans.Scan(ctx, op, ScanRequest{
			SessionID: session.ID, CardNumber: "CARD-001", ItemID: fmt.Sprintf("item-%d", i),
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	out, err := svc.Scans(ctx, op, session.ID)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.False(t, out[0].ScannedAt.Before(out[1].ScannedAt), "newest first")

	// admins may read the log too
	out, err = svc.Scans(ctx, Actor{ID: "a-1", Role: models.RoleAdmin}, session.ID)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	_, err = svc.Scans(ctx, Actor{ID: "p-1", Role: models.RoleParent}, session.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Scans(ctx, op, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
