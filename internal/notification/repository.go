// internal/notification/repository.go

package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository defines the notification repository interface
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	GetRecipient(ctx context.Context, userID int64) (*Recipient, error)
	DeleteOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error)
}

// postgresRepository implements Repository using PostgreSQL
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// CreateNotification appends the activity row. The dedupe key makes an
// at-least-once producer safe to retry.
func (r *postgresRepository) CreateNotification(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (dedupe_key, user_id, type, related_user_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		n.DedupeKey, n.UserID, n.Type, n.RelatedUserID, n.Payload,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		// conflict: the row already exists from an earlier attempt
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListNotifications returns a page of a user's notifications, newest first
func (r *postgresRepository) ListNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	notifications := []*Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a user
func (r *postgresRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	return count, nil
}

// MarkRead flips the read flag on one of the user's notifications
func (r *postgresRepository) MarkRead(ctx context.Context, userID, notificationID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllRead flips the read flag on all of the user's notifications
func (r *postgresRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

// GetRecipient loads a user's delivery addresses and channel preferences
func (r *postgresRepository) GetRecipient(ctx context.Context, userID int64) (*Recipient, error) {
	var recipient Recipient
	query := `
		SELECT id, email, phone, email_notifications, sms_notifications
		FROM users WHERE id = $1
	`
	err := r.db.GetContext(ctx, &recipient, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return &recipient, nil
}

// DeleteOldNotifications purges read notifications past the retention window
func (r *postgresRepository) DeleteOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = TRUE AND created_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}

	return result.RowsAffected()
}
