// internal/relationship/dto.go

package relationship

// SendInterestRequest is the payload for expressing interest in a user
type SendInterestRequest struct {
	ToUserID int64   `json:"to_user_id" validate:"required,min=1"`
	Message  *string `json:"message" validate:"omitempty,max=500"`
}

// RespondInterestRequest is the recipient's answer to a pending interest
type RespondInterestRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

// BlockUserRequest is the optional payload when blocking a user
type BlockUserRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// Interest listing boxes
const (
	BoxSent     = "sent"
	BoxReceived = "received"
)
