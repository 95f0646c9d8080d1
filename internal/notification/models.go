// internal/notification/models.go

package notification

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Notification is one durable activity record. The row is the source of
// truth: delivery channels are best effort on top of it.
type Notification struct {
	ID            int64          `json:"id" db:"id"`
	DedupeKey     string         `json:"-" db:"dedupe_key"`
	UserID        int64          `json:"user_id" db:"user_id"`
	Type          string         `json:"type" db:"type"`
	RelatedUserID *int64         `json:"related_user_id,omitempty" db:"related_user_id"`
	Payload       types.JSONText `json:"payload,omitempty" db:"payload"`
	IsRead        bool           `json:"is_read" db:"is_read"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Recipient is the delivery view of a user: addresses plus channel
// preferences.
type Recipient struct {
	UserID       int64   `db:"id"`
	Email        string  `db:"email"`
	Phone        *string `db:"phone"`
	EmailEnabled bool    `db:"email_notifications"`
	SMSEnabled   bool    `db:"sms_notifications"`
}

// NotificationsResponse is the paginated listing payload
type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int64           `json:"unread_count"`
	Limit         int             `json:"limit"`
	Offset        int             `json:"offset"`
}
