package domain

import "time"

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive              SubscriptionStatus = "active"
	SubscriptionStatusPendingCancellation SubscriptionStatus = "pending_cancellation"
)

// DefaultMonthlyPriceCents is used when a subscription price is unknown.
const DefaultMonthlyPriceCents = 2500

// Subscription is a pre-existing paid plan. The flow only toggles its status.
type Subscription struct {
	ID           string
	UserID       string
	MonthlyPrice int
	Status       SubscriptionStatus
	CreatedAt    time.Time
}

// StatusForPending maps the pending_cancellation flag to a status value.
func StatusForPending(pending bool) SubscriptionStatus {
	if pending {
		return SubscriptionStatusPendingCancellation
	}
	return SubscriptionStatusActive
}
