// internal/relationship/models.go

package relationship

import (
	"time"
)

// InterestStatus is the lifecycle state of an interest
type InterestStatus string

const (
	InterestPending   InterestStatus = "pending"
	InterestAccepted  InterestStatus = "accepted"
	InterestDeclined  InterestStatus = "declined"
	InterestWithdrawn InterestStatus = "withdrawn"
)

// Interest is a directed expression of interest from one user to another.
// At most one row exists per (from, to) direction; a withdrawn row is
// revived to pending on resend rather than duplicated.
type Interest struct {
	ID          int64          `json:"id" db:"id"`
	FromUserID  int64          `json:"from_user_id" db:"from_user_id"`
	ToUserID    int64          `json:"to_user_id" db:"to_user_id"`
	Status      InterestStatus `json:"status" db:"status"`
	Message     *string        `json:"message,omitempty" db:"message"`
	RespondedAt *time.Time     `json:"responded_at,omitempty" db:"responded_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ConnectionStatus is the lifecycle state of a connection
type ConnectionStatus string

const (
	ConnectionActive ConnectionStatus = "active"
	ConnectionEnded  ConnectionStatus = "ended"
)

// Connection is the mutual relationship created by an accepted interest.
// The pair is stored in canonical order (user1_id < user2_id) so the unique
// constraint holds regardless of who initiated.
type Connection struct {
	ID         int64            `json:"id" db:"id"`
	User1ID    int64            `json:"user1_id" db:"user1_id"`
	User2ID    int64            `json:"user2_id" db:"user2_id"`
	InterestID *int64           `json:"interest_id,omitempty" db:"interest_id"`
	Status     ConnectionStatus `json:"status" db:"status"`
	EndedAt    *time.Time       `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// Block is a directed block record. Blocks are not symmetric in storage but
// suppress interaction in both directions.
type Block struct {
	ID        int64     `json:"id" db:"id"`
	BlockerID int64     `json:"blocker_id" db:"blocker_id"`
	BlockedID int64     `json:"blocked_id" db:"blocked_id"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
