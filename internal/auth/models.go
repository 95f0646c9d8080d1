// internal/auth/models.go
// Data structures for the authentication system.

package auth

import (
	"time"
)

// User represents a user account. Relationship eligibility flags
// (minimal profile completion, progression stage) live here because they
// are account-level state, not profile fields.
type User struct {
	ID                       int64     `json:"id" db:"id"`
	Email                    string    `json:"email" db:"email"`
	Username                 string    `json:"username" db:"username"`
	PasswordHash             string    `json:"-" db:"password_hash"`
	IsVerified               bool      `json:"is_verified" db:"is_verified"`
	MinimalProfileCompletion bool      `json:"minimal_profile_completion" db:"minimal_profile_completion"`
	ProfileStage             int       `json:"profile_stage" db:"profile_stage"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time `json:"updated_at" db:"updated_at"`
}

// RevokedToken is a durable denylist entry keyed by token identifier.
// Rows expire with the token itself and are purged by the cleanup job.
type RevokedToken struct {
	TokenID   string    `json:"token_id" db:"token_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	RevokedAt time.Time `json:"revoked_at" db:"revoked_at"`
}

// SignupRequest is what the client sends to create an account
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the credential payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned on signup/login/refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
