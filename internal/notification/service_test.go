// internal/notification/service_test.go

package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps notifications in memory
type fakeRepo struct {
	nextID        int64
	notifications map[int64]*Notification
	recipients    map[int64]*Recipient
	createErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		notifications: map[int64]*Notification{},
		recipients:    map[int64]*Recipient{},
	}
}

func (f *fakeRepo) CreateNotification(ctx context.Context, n *Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.notifications {
		if existing.DedupeKey == n.DedupeKey {
			return nil
		}
	}
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = time.Now()
	copied := *n
	f.notifications[n.ID] = &copied
	return nil
}

func (f *fakeRepo) ListNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, error) {
	var out []*Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRepo) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, userID, notificationID int64) error {
	n, ok := f.notifications[notificationID]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (f *fakeRepo) MarkAllRead(ctx context.Context, userID int64) error {
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeRepo) GetRecipient(ctx context.Context, userID int64) (*Recipient, error) {
	recipient, ok := f.recipients[userID]
	if !ok {
		return nil, ErrRecipientNotFound
	}
	copied := *recipient
	return &copied, nil
}

func (f *fakeRepo) DeleteOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

// failingEmail always errors
type failingEmail struct {
	calls int
}

func (f *failingEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	f.calls++
	return fmt.Errorf("smtp unreachable")
}

// recordingSMS records deliveries
type recordingSMS struct {
	sent []string
}

func (r *recordingSMS) SendSMS(ctx context.Context, to, message string) error {
	r.sent = append(r.sent, to)
	return nil
}

func phonePtr(s string) *string { return &s }

func TestEmitPersistsRow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	svc.Emit(ctx, 7, "connection_accepted", 3, map[string]interface{}{"connection_id": int64(12)})

	require.Len(t, repo.notifications, 1)
	for _, n := range repo.notifications {
		assert.Equal(t, int64(7), n.UserID)
		assert.Equal(t, "connection_accepted", n.Type)
		require.NotNil(t, n.RelatedUserID)
		assert.Equal(t, int64(3), *n.RelatedUserID)
		assert.False(t, n.IsRead)
		assert.NotEmpty(t, n.DedupeKey)
	}
}

// The durable row survives even when every delivery channel fails.
func TestEmitSurvivesChannelFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.recipients[7] = &Recipient{
		UserID:       7,
		Email:        "a@example.com",
		Phone:        phonePtr("+2348000000000"),
		EmailEnabled: true,
		SMSEnabled:   true,
	}
	email := &failingEmail{}
	svc := NewService(repo, nil, email, &recordingSMS{})
	ctx := context.Background()

	svc.Emit(ctx, 7, "interest_received", 3, nil)

	assert.Len(t, repo.notifications, 1)
	assert.Equal(t, 1, email.calls)
}

func TestEmitRespectsChannelPreferences(t *testing.T) {
	repo := newFakeRepo()
	repo.recipients[7] = &Recipient{
		UserID:       7,
		Email:        "a@example.com",
		Phone:        phonePtr("+2348000000000"),
		EmailEnabled: false,
		SMSEnabled:   true,
	}
	email := &failingEmail{}
	sms := &recordingSMS{}
	svc := NewService(repo, nil, email, sms)

	svc.Emit(context.Background(), 7, "interest_received", 3, nil)

	assert.Equal(t, 0, email.calls)
	assert.Equal(t, []string{"+2348000000000"}, sms.sent)
}

// Persistence failure means no fan-out: the row is the source of truth.
func TestEmitSkipsFanOutWhenPersistFails(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = fmt.Errorf("db down")
	repo.recipients[7] = &Recipient{UserID: 7, Email: "a@example.com", EmailEnabled: true}
	email := &failingEmail{}
	svc := NewService(repo, nil, email, nil)

	svc.Emit(context.Background(), 7, "interest_received", 3, nil)

	assert.Empty(t, repo.notifications)
	assert.Equal(t, 0, email.calls)
}

func TestMarkAsRead(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	svc.Emit(ctx, 7, "interest_received", 3, nil)
	svc.Emit(ctx, 7, "connection_accepted", 3, nil)

	response, err := svc.GetNotifications(ctx, 7, 20, 0, false)
	require.NoError(t, err)
	require.Len(t, response.Notifications, 2)
	assert.Equal(t, int64(2), response.UnreadCount)

	require.NoError(t, svc.MarkAsRead(ctx, 7, response.Notifications[0].ID))

	response, err = svc.GetNotifications(ctx, 7, 20, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), response.UnreadCount)
}

func TestMarkAsReadWrongUser(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	svc.Emit(ctx, 7, "interest_received", 3, nil)

	var id int64
	for _, n := range repo.notifications {
		id = n.ID
	}

	err := svc.MarkAsRead(ctx, 8, id)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	svc.Emit(ctx, 7, "interest_received", 3, nil)
	svc.Emit(ctx, 7, "interest_received", 4, nil)
	svc.Emit(ctx, 9, "interest_received", 3, nil)

	require.NoError(t, svc.MarkAllAsRead(ctx, 7))

	response, err := svc.GetNotifications(ctx, 7, 20, 0, true)
	require.NoError(t, err)
	assert.Empty(t, response.Notifications)

	// other users untouched
	response, err = svc.GetNotifications(ctx, 9, 20, 0, true)
	require.NoError(t, err)
	assert.Len(t, response.Notifications, 1)
}
