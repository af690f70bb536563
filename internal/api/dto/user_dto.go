package dto

import "time"

// UserResponse is the public user shape.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CurrentAccountResponse answers GET /users/first. User and Subscription are
// null when the store is empty or the user has no subscription.
type CurrentAccountResponse struct {
	User             *UserResponse         `json:"user"`
	Subscription     *SubscriptionResponse `json:"subscription"`
	SessionToken     string                `json:"session_token,omitempty"`
	SessionExpiresAt *time.Time            `json:"session_expires_at,omitempty"`
}

// SeedUserRequest payload for POST /dev/seed-user.
type SeedUserRequest struct {
	Email        string `json:"email"`
	MonthlyPrice *int   `json:"monthly_price"`
}

// SeedUserResponse echoes the inserted rows.
type SeedUserResponse struct {
	User         UserResponse         `json:"user"`
	Subscription SubscriptionResponse `json:"subscription"`
}
