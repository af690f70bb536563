package events

import (
	"time"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCancellationStarted       EventType = "cancellation_started"
	EventCancellationUpdated       EventType = "cancellation_updated"
	EventDownsellResponded         EventType = "downsell_responded"
	EventSubscriptionStatusChanged EventType = "subscription_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	UserID         string    `json:"user_id,omitempty"`
	CancellationID string    `json:"cancellation_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload"`
}

// CancellationStartedPayload payload.
type CancellationStartedPayload struct {
	DownsellVariant domain.DownsellVariant `json:"downsell_variant"`
}

// CancellationUpdatedPayload lists the columns a patch touched.
type CancellationUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// DownsellRespondedPayload payload.
type DownsellRespondedPayload struct {
	Accepted        bool                   `json:"accepted"`
	DownsellVariant domain.DownsellVariant `json:"downsell_variant"`
}

// SubscriptionStatusChangedPayload payload.
type SubscriptionStatusChangedPayload struct {
	OldStatus domain.SubscriptionStatus `json:"old_status"`
	NewStatus domain.SubscriptionStatus `json:"new_status"`
}
