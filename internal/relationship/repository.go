// internal/relationship/repository.go

package relationship

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines the relationship store interface
type Repository interface {
	// Interests
	CreateInterest(ctx context.Context, fromUserID, toUserID int64, message *string) (*Interest, error)
	GetInterestByID(ctx context.Context, id int64) (*Interest, error)
	DeclineInterest(ctx context.Context, id int64) (*Interest, error)
	WithdrawInterest(ctx context.Context, id int64) (*Interest, error)
	AcceptInterest(ctx context.Context, interest *Interest) (*Interest, *Connection, error)
	ListInterests(ctx context.Context, userID int64, box string) ([]*Interest, error)

	// Connections
	GetConnectionByPair(ctx context.Context, userA, userB int64) (*Connection, error)
	ListConnections(ctx context.Context, userID int64) ([]*Connection, error)

	// Blocks
	IsBlockedPair(ctx context.Context, userA, userB int64) (bool, error)
	CreateBlockCascade(ctx context.Context, blockerID, blockedID int64, reason *string) (*Block, error)
	DeleteBlock(ctx context.Context, blockerID, blockedID int64) error
	ListBlocks(ctx context.Context, blockerID int64) ([]*Block, error)
}

// postgresRepository implements Repository using PostgreSQL
type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// IsTransientError reports whether err is a serialization or deadlock
// failure worth retrying as a whole transaction.
func IsTransientError(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			*target = pqErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return asPQError(err, &pqErr) && pqErr.Code == "23505"
}

// withTx runs fn inside a transaction, rolling back on error
func (r *postgresRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Interests

// CreateInterest inserts a pending interest. A withdrawn row for the same
// direction is revived to pending instead of duplicated; any other existing
// row rejects the insert.
func (r *postgresRepository) CreateInterest(ctx context.Context, fromUserID, toUserID int64, message *string) (*Interest, error) {
	query := `
		INSERT INTO interests (from_user_id, to_user_id, message)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_user_id, to_user_id) DO UPDATE
		SET status = 'pending',
		    message = EXCLUDED.message,
		    responded_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE interests.status = 'withdrawn'
		RETURNING *
	`

	var interest Interest
	err := r.db.GetContext(ctx, &interest, query, fromUserID, toUserID, message)
	if err != nil {
		// the conflict target matched but the row was not withdrawn
		if err == sql.ErrNoRows {
			return nil, ErrDuplicateInterest
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateInterest
		}
		return nil, fmt.Errorf("failed to create interest: %w", err)
	}

	return &interest, nil
}

// GetInterestByID retrieves an interest by ID
func (r *postgresRepository) GetInterestByID(ctx context.Context, id int64) (*Interest, error) {
	var interest Interest
	err := r.db.GetContext(ctx, &interest, `SELECT * FROM interests WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInterestNotFound
		}
		return nil, fmt.Errorf("failed to get interest: %w", err)
	}

	return &interest, nil
}

// DeclineInterest flips a pending interest to declined
func (r *postgresRepository) DeclineInterest(ctx context.Context, id int64) (*Interest, error) {
	return r.transitionInterest(ctx, id, InterestDeclined, true)
}

// WithdrawInterest flips a pending interest to withdrawn
func (r *postgresRepository) WithdrawInterest(ctx context.Context, id int64) (*Interest, error) {
	return r.transitionInterest(ctx, id, InterestWithdrawn, false)
}

// transitionInterest moves a pending interest to a terminal status. The
// status guard in the WHERE clause makes concurrent transitions lose
// cleanly instead of double-applying.
func (r *postgresRepository) transitionInterest(ctx context.Context, id int64, to InterestStatus, stampResponded bool) (*Interest, error) {
	respondedAt := "responded_at"
	if stampResponded {
		respondedAt = "CURRENT_TIMESTAMP"
	}

	query := fmt.Sprintf(`
		UPDATE interests
		SET status = $1, responded_at = %s, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = 'pending'
		RETURNING *
	`, respondedAt)

	var interest Interest
	err := r.db.GetContext(ctx, &interest, query, to, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInterestNotPending
		}
		return nil, fmt.Errorf("failed to update interest: %w", err)
	}

	return &interest, nil
}

// AcceptInterest flips the interest to accepted and establishes the
// connection for the pair in one transaction. A previously ended connection
// for the same pair is revived rather than duplicated.
func (r *postgresRepository) AcceptInterest(ctx context.Context, interest *Interest) (*Interest, *Connection, error) {
	var accepted Interest
	var connection Connection

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		flip := `
			UPDATE interests
			SET status = 'accepted', responded_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		`
		if err := tx.GetContext(ctx, &accepted, flip, interest.ID); err != nil {
			if err == sql.ErrNoRows {
				return ErrInterestNotPending
			}
			return fmt.Errorf("failed to accept interest: %w", err)
		}

		user1, user2 := orderPair(interest.FromUserID, interest.ToUserID)
		upsert := `
			INSERT INTO connections (user1_id, user2_id, interest_id, status)
			VALUES ($1, $2, $3, 'active')
			ON CONFLICT (user1_id, user2_id) DO UPDATE
			SET status = 'active',
			    interest_id = EXCLUDED.interest_id,
			    ended_at = NULL,
			    updated_at = CURRENT_TIMESTAMP
			RETURNING *
		`
		if err := tx.GetContext(ctx, &connection, upsert, user1, user2, interest.ID); err != nil {
			return fmt.Errorf("failed to create connection: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &accepted, &connection, nil
}

// ListInterests returns a user's sent or received interests. Withdrawn
// rows stay visible to their sender but are hidden from the recipient.
func (r *postgresRepository) ListInterests(ctx context.Context, userID int64, box string) ([]*Interest, error) {
	var query string
	switch box {
	case BoxSent:
		query = `SELECT * FROM interests WHERE from_user_id = $1 ORDER BY updated_at DESC`
	case BoxReceived:
		query = `SELECT * FROM interests WHERE to_user_id = $1 AND status <> 'withdrawn' ORDER BY updated_at DESC`
	default:
		return nil, fmt.Errorf("unknown interest box: %s", box)
	}

	interests := []*Interest{}
	if err := r.db.SelectContext(ctx, &interests, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}

	return interests, nil
}

// Connections

// GetConnectionByPair retrieves the connection row for a pair, if any
func (r *postgresRepository) GetConnectionByPair(ctx context.Context, userA, userB int64) (*Connection, error) {
	user1, user2 := orderPair(userA, userB)

	var connection Connection
	query := `SELECT * FROM connections WHERE user1_id = $1 AND user2_id = $2`
	err := r.db.GetContext(ctx, &connection, query, user1, user2)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return &connection, nil
}

// ListConnections returns a user's active connections
func (r *postgresRepository) ListConnections(ctx context.Context, userID int64) ([]*Connection, error) {
	query := `
		SELECT * FROM connections
		WHERE (user1_id = $1 OR user2_id = $1) AND status = 'active'
		ORDER BY updated_at DESC
	`

	connections := []*Connection{}
	if err := r.db.SelectContext(ctx, &connections, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	return connections, nil
}

// Blocks

// IsBlockedPair reports whether a block exists in either direction
func (r *postgresRepository) IsBlockedPair(ctx context.Context, userA, userB int64) (bool, error) {
	var blocked bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	if err := r.db.GetContext(ctx, &blocked, query, userA, userB); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}

	return blocked, nil
}

// CreateBlockCascade inserts the block and, in the same transaction, ends
// the pair's active connection and withdraws pending interests in both
// directions.
func (r *postgresRepository) CreateBlockCascade(ctx context.Context, blockerID, blockedID int64, reason *string) (*Block, error) {
	var block Block

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO blocks (blocker_id, blocked_id, reason)
			VALUES ($1, $2, $3)
			RETURNING *
		`
		if err := tx.GetContext(ctx, &block, insert, blockerID, blockedID, reason); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyBlocked
			}
			return fmt.Errorf("failed to create block: %w", err)
		}

		user1, user2 := orderPair(blockerID, blockedID)
		endConnection := `
			UPDATE connections
			SET status = 'ended', ended_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
		`
		if _, err := tx.ExecContext(ctx, endConnection, user1, user2); err != nil {
			return fmt.Errorf("failed to end connection: %w", err)
		}

		withdrawInterests := `
			UPDATE interests
			SET status = 'withdrawn', updated_at = CURRENT_TIMESTAMP
			WHERE ((from_user_id = $1 AND to_user_id = $2)
			    OR (from_user_id = $2 AND to_user_id = $1))
			  AND status = 'pending'
		`
		if _, err := tx.ExecContext(ctx, withdrawInterests, blockerID, blockedID); err != nil {
			return fmt.Errorf("failed to withdraw interests: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &block, nil
}

// DeleteBlock removes a block. Nothing the block suppressed is restored.
func (r *postgresRepository) DeleteBlock(ctx context.Context, blockerID, blockedID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBlockNotFound
	}

	return nil
}

// ListBlocks returns the blocks a user has placed
func (r *postgresRepository) ListBlocks(ctx context.Context, blockerID int64) ([]*Block, error) {
	blocks := []*Block{}
	query := `SELECT * FROM blocks WHERE blocker_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &blocks, query, blockerID); err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	return blocks, nil
}
