package dto

import (
	"time"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// SubscriptionResponse is the public subscription shape. MonthlyPrice is in cents.
type SubscriptionResponse struct {
	ID           string                    `json:"id"`
	UserID       string                    `json:"user_id"`
	MonthlyPrice int                       `json:"monthly_price"`
	Status       domain.SubscriptionStatus `json:"status"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// PatchSubscriptionRequest payload for PATCH /subscriptions.
type PatchSubscriptionRequest struct {
	ID                  string `json:"id"`
	PendingCancellation *bool  `json:"pending_cancellation"`
}

// SubscriptionEnvelope wraps a subscription response.
type SubscriptionEnvelope struct {
	Subscription SubscriptionResponse `json:"subscription"`
}
