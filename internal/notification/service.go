// internal/notification/service.go

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sangamhq/sangam-backend/internal/common/logger"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRecipientNotFound    = errors.New("recipient not found")
)

// EmailSender delivers one email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one SMS
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Service is the notification sink plus the read-side API. Emit persists
// the row first (authoritative), then fans out to the live stream, email
// and SMS channels; channel failures are logged and never propagate back
// to the producing workflow.
type Service interface {
	Emit(ctx context.Context, recipientID int64, eventType string, actorID int64, payload map[string]interface{})

	GetNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) (*NotificationsResponse, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	CleanupOldNotifications(ctx context.Context, olderThan time.Duration) error
}

// service implements the notification service
type service struct {
	repo  Repository
	hub   *Hub
	email EmailSender
	sms   SMSSender
}

// NewService creates a new notification service. The hub, email and SMS
// channels are optional; a nil channel is skipped during fan-out.
func NewService(repo Repository, hub *Hub, email EmailSender, sms SMSSender) Service {
	return &service{
		repo:  repo,
		hub:   hub,
		email: email,
		sms:   sms,
	}
}

// Emit records the event durably and then attempts delivery. The caller
// never learns about channel failures; the durable row is what guarantees
// the recipient eventually sees the event.
func (s *service) Emit(ctx context.Context, recipientID int64, eventType string, actorID int64, payload map[string]interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"type", eventType, "user_id", recipientID, "error", err)
		raw = []byte("{}")
	}

	n := &Notification{
		DedupeKey:     uuid.NewString(),
		UserID:        recipientID,
		Type:          eventType,
		RelatedUserID: &actorID,
		Payload:       raw,
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		logger.Error("failed to persist notification",
			"type", eventType, "user_id", recipientID, "error", err)
		return
	}

	s.fanOut(ctx, n)
}

// fanOut pushes the persisted notification through the delivery channels
func (s *service) fanOut(ctx context.Context, n *Notification) {
	if s.hub != nil {
		s.hub.Push(n.UserID, n)
	}

	if s.email == nil && s.sms == nil {
		return
	}

	recipient, err := s.repo.GetRecipient(ctx, n.UserID)
	if err != nil {
		logger.Warn("failed to load notification recipient",
			"user_id", n.UserID, "error", err)
		return
	}

	subject, body := renderMessage(n.Type)

	if s.email != nil && recipient.EmailEnabled && recipient.Email != "" {
		if err := s.email.SendEmail(ctx, recipient.Email, subject, body); err != nil {
			logger.Warn("failed to send notification email",
				"user_id", n.UserID, "type", n.Type, "error", err)
		}
	}

	if s.sms != nil && recipient.SMSEnabled && recipient.Phone != nil && *recipient.Phone != "" {
		if err := s.sms.SendSMS(ctx, *recipient.Phone, body); err != nil {
			logger.Warn("failed to send notification sms",
				"user_id", n.UserID, "type", n.Type, "error", err)
		}
	}
}

func (s *service) GetNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) (*NotificationsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.ListNotifications(ctx, userID, limit, offset, unreadOnly)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &NotificationsResponse{
		Notifications: notifications,
		UnreadCount:   unread,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (s *service) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) error {
	deleted, err := s.repo.DeleteOldNotifications(ctx, olderThan)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("purged old notifications", "count", deleted)
	}
	return nil
}

// renderMessage maps an event type to the human-facing subject and body
// used by the email and SMS channels.
func renderMessage(eventType string) (subject, body string) {
	switch eventType {
	case "interest_received":
		return "Someone is interested in you", "You have received a new interest on Sangam. Log in to respond."
	case "connection_accepted":
		return "Your interest was accepted", "Congratulations! Your interest was accepted and you are now connected."
	case "user_blocked":
		return "Block confirmation", "You have blocked a user. They will no longer be able to contact you."
	default:
		return "New activity on Sangam", "You have new activity on your Sangam account."
	}
}
