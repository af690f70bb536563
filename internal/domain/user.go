package domain

import "time"

// User is the account holder walking through the cancellation flow.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
