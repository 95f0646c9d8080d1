// internal/relationship/errors.go
// Sentinel errors for the relationship workflows. Handlers map these to
// HTTP statuses; repositories translate store failures into them so pq
// details never leak past the storage layer.

package relationship

import "errors"

var (
	// Preconditions
	ErrSelfInterest = errors.New("cannot send an interest to yourself")
	ErrSelfBlock    = errors.New("cannot block yourself")
	ErrBlockedPair  = errors.New("interaction not allowed between these users")

	// Conflicts
	ErrDuplicateInterest = errors.New("an interest for this user already exists")
	ErrAlreadyConnected  = errors.New("users are already connected")
	ErrAlreadyBlocked    = errors.New("user is already blocked")

	// State violations
	ErrInterestNotPending = errors.New("interest is not pending")

	// Authorization
	ErrNotInterestRecipient = errors.New("only the recipient can respond to an interest")
	ErrNotInterestSender    = errors.New("only the sender can withdraw an interest")

	// Not found
	ErrInterestNotFound = errors.New("interest not found")
	ErrBlockNotFound    = errors.New("block not found")
)
