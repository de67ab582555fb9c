package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

type fakeSender struct {
	name    string
	applies func(*models.User) bool
	err     error
	sent    []*models.Notification
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Applies(recipient *models.User) bool {
	if f.applies == nil {
		return true
	}
	return f.applies(recipient)
}

func (f *fakeSender) Send(ctx context.Context, recipient *models.User, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func seedPending(mem *store.Memory, id, recipientID string) {
	mem.SeedNotification(&models.Notification{
		ID:          id,
		RecipientID: recipientID,
		Title:       "Transaction Report",
		Message:     "test message",
		Status:      models.NotifyPending,
		Type:        models.NotifyTypeTransaction,
	})
}

func notificationByID(mem *store.Memory, id string) *models.Notification {
	for _, n := range mem.Notifications() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func TestProcessPending_Delivers(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent, Email: "joseph@example.com"})
	seedPending(mem, "n-1", "par-1")
	seedPending(mem, "n-2", "par-1")

	sender := &fakeSender{name: "push"}
	d := New(mem, sender)

	d.ProcessPending(context.Background())

	assert.Len(t, sender.sent, 2)
	for _, id := range []string{"n-1", "n-2"} {
		n := notificationByID(mem, id)
		require.NotNil(t, n)
		assert.Equal(t, models.NotifySent, n.Status)
	}

	pending, err := mem.PendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessPending_RetryThenFail(t *testing.T) {
	// GIVEN: a sender that always fails
	// WHEN: three rounds run
	// THEN: the retry counter climbs and the row goes failed, not sent

	mem := store.NewMemory()
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent})
	seedPending(mem, "n-1", "par-1")

	sender := &fakeSender{name: "push", err: errors.New("broker down")}
	d := New(mem, sender)
	ctx := context.Background()

	d.ProcessPending(ctx)
	n := notificationByID(mem, "n-1")
	assert.Equal(t, models.NotifyPending, n.Status)
	assert.Equal(t, 1, n.RetryCount)

	d.ProcessPending(ctx)
	d.ProcessPending(ctx)
	n = notificationByID(mem, "n-1")
	assert.Equal(t, models.NotifyFailed, n.Status)
	assert.Equal(t, 3, n.RetryCount)

	// a failed row never comes back
	d.ProcessPending(ctx)
	n = notificationByID(mem, "n-1")
	assert.Equal(t, models.NotifyFailed, n.Status)
	assert.Equal(t, 3, n.RetryCount)
}

func TestProcessPending_RecoversAfterTransientFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent})
	seedPending(mem, "n-1", "par-1")

	sender := &fakeSender{name: "push", err: errors.New("broker down")}
	d := New(mem, sender)
	ctx := context.Background()

	d.ProcessPending(ctx)
	require.Equal(t, 1, notificationByID(mem, "n-1").RetryCount)

	sender.err = nil
	d.ProcessPending(ctx)

	n := notificationByID(mem, "n-1")
	assert.Equal(t, models.NotifySent, n.Status)
	assert.Equal(t, 0, n.RetryCount, "retries reset on delivery")
}

func TestProcessPending_SenderSelection(t *testing.T) {
	// The email channel only applies when the recipient has an
	// address; push reaches everyone.

	mem := store.NewMemory()
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent, Email: "joseph@example.com"})
	mem.SeedUser(&models.User{ID: "par-2", Role: models.RoleParent})
	seedPending(mem, "n-1", "par-1")
	seedPending(mem, "n-2", "par-2")

	push := &fakeSender{name: "push"}
	email := &fakeSender{name: "email", applies: func(u *models.User) bool { return u.Email != "" }}
	d := New(mem, push, email)

	d.ProcessPending(context.Background())

	assert.Len(t, push.sent, 2)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "n-1", email.sent[0].ID)
}

func TestProcessPending_MissingRecipient(t *testing.T) {
	// The recipient was deleted after the notification was queued;
	// the row is settled instead of retrying forever.

	mem := store.NewMemory()
	seedPending(mem, "n-1", "gone-1")

	sender := &fakeSender{name: "push"}
	d := New(mem, sender)

	d.ProcessPending(context.Background())

	assert.Empty(t, sender.sent)
	assert.Equal(t, models.NotifySent, notificationByID(mem, "n-1").Status)
}

func TestProcessPending_BatchLimit(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedUser(&models.User{ID: "par-1", Role: models.RoleParent})
	for i := 0; i < 5; i++ {
		seedPending(mem, string(rune('a'+i)), "par-1")
	}

	sender := &fakeSender{name: "push"}
	d := New(mem, sender)
	d.Batch = 2

	d.ProcessPending(context.Background())
	assert.Len(t, sender.sent, 2)

	d.ProcessPending(context.Background())
	assert.Len(t, sender.sent, 4)
}

func TestWake_NonBlocking(t *testing.T) {
	d := New(store.NewMemory())
	for i := 0; i < 10; i++ {
		d.Wake()
	}
}
