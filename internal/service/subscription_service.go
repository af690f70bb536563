package service

import (
	"context"
	"strings"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/events"
	"github.com/migratemate/cancellation-flow/internal/observability"
	"github.com/migratemate/cancellation-flow/internal/repository"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// SubscriptionService toggles the pending-cancellation marker. It never
// changes price and never deletes.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
}

// SubscriptionDependencies bundles collaborators for the subscription service.
type SubscriptionDependencies struct {
	SubscriptionRepo repository.SubscriptionRepository
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: deps.SubscriptionRepo,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
	}
}

// SetPendingCancellation maps pending to the pending_cancellation or active status.
func (s *SubscriptionService) SetPendingCancellation(ctx context.Context, id string, pending bool) (*domain.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	current, err := s.subscriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.StatusForPending(pending)
	if current.Status == next {
		return current, nil
	}
	updated, err := s.subscriptions.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}

	stage := observability.StageReactivated
	if pending {
		stage = observability.StagePendingCancellation
	}
	s.metrics.RecordFunnel(stage, "")
	publish(ctx, s.dispatcher, events.Event{
		Type:           events.EventSubscriptionStatusChanged,
		UserID:         updated.UserID,
		SubscriptionID: updated.ID,
		Payload: events.SubscriptionStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}
