// internal/relationship/service.go

package relationship

import (
	"context"

	"github.com/sangamhq/sangam-backend/internal/common/logger"
)

// Notification event types emitted by the workflows
const (
	EventInterestReceived   = "interest_received"
	EventConnectionAccepted = "connection_accepted"
	EventUserBlocked        = "user_blocked"
)

// Gate decides whether a user may use the relationship subsystem
type Gate interface {
	CanUseRelationships(ctx context.Context, userID int64) error
}

// Sink receives relationship events after the state change has committed.
// Implementations persist and fan out on their own; they must not block
// the workflow and never surface delivery errors to it.
type Sink interface {
	Emit(ctx context.Context, recipientID int64, eventType string, actorID int64, payload map[string]interface{})
}

// Service defines the relationship service interface
type Service interface {
	// Interest workflow
	SendInterest(ctx context.Context, fromUserID int64, req *SendInterestRequest) (*Interest, error)
	RespondToInterest(ctx context.Context, userID, interestID int64, req *RespondInterestRequest) (*Interest, error)
	WithdrawInterest(ctx context.Context, userID, interestID int64) (*Interest, error)
	GetInterests(ctx context.Context, userID int64, box string) ([]*Interest, error)

	// Block workflow
	BlockUser(ctx context.Context, blockerID, blockedID int64, req *BlockUserRequest) (*Block, error)
	UnblockUser(ctx context.Context, blockerID, blockedID int64) error
	GetBlocks(ctx context.Context, userID int64) ([]*Block, error)

	// Connections
	GetConnections(ctx context.Context, userID int64) ([]*Connection, error)
}

// service implements the relationship service
type service struct {
	repo Repository
	gate Gate
	sink Sink
}

// NewService creates a new relationship service
func NewService(repo Repository, gate Gate, sink Sink) Service {
	return &service{
		repo: repo,
		gate: gate,
		sink: sink,
	}
}

// SendInterest expresses interest in another user. The sender's profile
// gate must be open, the pair must not be blocked in either direction, and
// the pair must not already be connected.
func (s *service) SendInterest(ctx context.Context, fromUserID int64, req *SendInterestRequest) (*Interest, error) {
	if err := s.gate.CanUseRelationships(ctx, fromUserID); err != nil {
		return nil, err
	}

	if fromUserID == req.ToUserID {
		return nil, ErrSelfInterest
	}

	blocked, err := s.repo.IsBlockedPair(ctx, fromUserID, req.ToUserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlockedPair
	}

	connection, err := s.repo.GetConnectionByPair(ctx, fromUserID, req.ToUserID)
	if err != nil {
		return nil, err
	}
	if connection != nil && connection.Status == ConnectionActive {
		return nil, ErrAlreadyConnected
	}

	interest, err := s.repo.CreateInterest(ctx, fromUserID, req.ToUserID, req.Message)
	if err != nil {
		return nil, err
	}

	recordInterest("sent")
	logger.Info("interest sent", "interest_id", interest.ID,
		"from_user_id", fromUserID, "to_user_id", req.ToUserID)

	s.sink.Emit(ctx, req.ToUserID, EventInterestReceived, fromUserID, map[string]interface{}{
		"interest_id": interest.ID,
	})

	return interest, nil
}

// RespondToInterest accepts or declines a pending interest. Only the
// recipient may respond. Acceptance flips the status and establishes the
// connection atomically; the acceptance event is emitted only after the
// transaction has committed.
func (s *service) RespondToInterest(ctx context.Context, userID, interestID int64, req *RespondInterestRequest) (*Interest, error) {
	if err := s.gate.CanUseRelationships(ctx, userID); err != nil {
		return nil, err
	}

	interest, err := s.repo.GetInterestByID(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if interest.ToUserID != userID {
		return nil, ErrNotInterestRecipient
	}
	if interest.Status != InterestPending {
		return nil, ErrInterestNotPending
	}

	if req.Action == "decline" {
		declined, err := s.repo.DeclineInterest(ctx, interestID)
		if err != nil {
			return nil, err
		}

		recordInterest("declined")
		logger.Info("interest declined", "interest_id", interestID, "user_id", userID)
		return declined, nil
	}

	var accepted *Interest
	var connection *Connection
	err = s.retryTransient(func() error {
		accepted, connection, err = s.repo.AcceptInterest(ctx, interest)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordInterest("accepted")
	recordConnection()
	logger.Info("interest accepted", "interest_id", interestID,
		"connection_id", connection.ID, "user_id", userID)

	s.sink.Emit(ctx, interest.FromUserID, EventConnectionAccepted, userID, map[string]interface{}{
		"interest_id":   interestID,
		"connection_id": connection.ID,
	})

	return accepted, nil
}

// WithdrawInterest retracts a pending interest. Only the sender may do it.
func (s *service) WithdrawInterest(ctx context.Context, userID, interestID int64) (*Interest, error) {
	interest, err := s.repo.GetInterestByID(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if interest.FromUserID != userID {
		return nil, ErrNotInterestSender
	}
	if interest.Status != InterestPending {
		return nil, ErrInterestNotPending
	}

	withdrawn, err := s.repo.WithdrawInterest(ctx, interestID)
	if err != nil {
		return nil, err
	}

	recordInterest("withdrawn")
	logger.Info("interest withdrawn", "interest_id", interestID, "user_id", userID)
	return withdrawn, nil
}

func (s *service) GetInterests(ctx context.Context, userID int64, box string) ([]*Interest, error) {
	return s.repo.ListInterests(ctx, userID, box)
}

// BlockUser blocks another user and cascades atomically: the pair's active
// connection ends and pending interests in both directions are withdrawn.
// The audit event goes to the blocker only; the blocked party is never
// notified.
func (s *service) BlockUser(ctx context.Context, blockerID, blockedID int64, req *BlockUserRequest) (*Block, error) {
	if err := s.gate.CanUseRelationships(ctx, blockerID); err != nil {
		return nil, err
	}

	if blockerID == blockedID {
		return nil, ErrSelfBlock
	}

	var reason *string
	if req != nil {
		reason = req.Reason
	}

	var block *Block
	err := s.retryTransient(func() error {
		var err error
		block, err = s.repo.CreateBlockCascade(ctx, blockerID, blockedID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	recordBlock("block")
	logger.Info("user blocked", "blocker_id", blockerID, "blocked_id", blockedID)

	s.sink.Emit(ctx, blockerID, EventUserBlocked, blockedID, map[string]interface{}{
		"block_id": block.ID,
	})

	return block, nil
}

// UnblockUser removes a block. Connections and interests the block ended
// stay ended; the pair starts over.
func (s *service) UnblockUser(ctx context.Context, blockerID, blockedID int64) error {
	if err := s.repo.DeleteBlock(ctx, blockerID, blockedID); err != nil {
		return err
	}

	recordBlock("unblock")
	logger.Info("user unblocked", "blocker_id", blockerID, "blocked_id", blockedID)
	return nil
}

func (s *service) GetBlocks(ctx context.Context, userID int64) ([]*Block, error) {
	return s.repo.ListBlocks(ctx, userID)
}

func (s *service) GetConnections(ctx context.Context, userID int64) ([]*Connection, error) {
	return s.repo.ListConnections(ctx, userID)
}

// retryTransient runs fn and retries it once if the whole transaction
// failed with a serialization or deadlock error.
func (s *service) retryTransient(fn func() error) error {
	err := fn()
	if err != nil && IsTransientError(err) {
		recordTxRetry()
		logger.Warn("transient transaction failure, retrying", "error", err)
		err = fn()
	}
	return err
}
