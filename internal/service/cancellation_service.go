package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/events"
	"github.com/migratemate/cancellation-flow/internal/observability"
	"github.com/migratemate/cancellation-flow/internal/repository"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// ErrSubscriptionNotFound is the message returned when a record cannot be
// tied to any subscription.
const ErrSubscriptionNotFound = "subscription_id not found for user"

// CancellationService coordinates cancellation record workflows.
type CancellationService struct {
	cancellations repository.CancellationRepository
	subscriptions repository.SubscriptionRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
}

// CancellationDependencies bundles collaborators for the cancellation service.
type CancellationDependencies struct {
	CancellationRepo repository.CancellationRepository
	SubscriptionRepo repository.SubscriptionRepository
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
}

// StartInput describes a new cancellation record.
type StartInput struct {
	UserID         string
	SubscriptionID string
	Variant        domain.DownsellVariant
}

// NewCancellationService constructs the service.
func NewCancellationService(deps CancellationDependencies) *CancellationService {
	return &CancellationService{
		cancellations: deps.CancellationRepo,
		subscriptions: deps.SubscriptionRepo,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
	}
}

// Start creates the record for a session. When no subscription id is given
// the user's newest subscription is used; without one the call fails.
func (s *CancellationService) Start(ctx context.Context, input StartInput) (*domain.Cancellation, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}
	if !input.Variant.Valid() {
		return nil, apperrors.NewValidationError("downsell_variant must be A or B", map[string]any{"downsell_variant": input.Variant})
	}

	subscriptionID := strings.TrimSpace(input.SubscriptionID)
	if subscriptionID == "" {
		sub, err := s.subscriptions.LatestForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			subscriptionID = sub.ID
		}
	}
	if subscriptionID == "" {
		return nil, apperrors.NewLookupFailed(ErrSubscriptionNotFound, map[string]any{"user_id": userID})
	}

	record := &domain.Cancellation{
		UserID:          userID,
		SubscriptionID:  subscriptionID,
		DownsellVariant: input.Variant,
	}
	if err := s.cancellations.Create(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.RecordFunnel(observability.StageCancellationStarted, string(record.DownsellVariant))
	s.publishEvent(ctx, events.Event{
		Type:           events.EventCancellationStarted,
		UserID:         record.UserID,
		CancellationID: record.ID,
		SubscriptionID: record.SubscriptionID,
		Payload:        events.CancellationStartedPayload{DownsellVariant: record.DownsellVariant},
	})
	return record, nil
}

// Get returns a record by id.
func (s *CancellationService) Get(ctx context.Context, id string) (*domain.Cancellation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	return s.cancellations.GetByID(ctx, id)
}

// Patch applies a partial update. Re-sending the same patch leaves the record unchanged.
func (s *CancellationService) Patch(ctx context.Context, id string, patch domain.CancellationPatch) (*domain.Cancellation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	if patch.DownsellVariant != nil && !patch.DownsellVariant.Valid() {
		return nil, apperrors.NewValidationError("downsell_variant must be A or B", nil)
	}
	if patch.Reason != nil && !patch.Reason.Valid() {
		return nil, apperrors.NewValidationError("unknown reason", map[string]any{"reason": *patch.Reason})
	}

	record, err := s.cancellations.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return record, nil
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventCancellationUpdated,
		UserID:         record.UserID,
		CancellationID: record.ID,
		SubscriptionID: record.SubscriptionID,
		Payload:        events.CancellationUpdatedPayload{Fields: patchedFields(patch)},
	})
	if patch.AcceptedDownsell != nil {
		stage := observability.StageDownsellDeclined
		if *patch.AcceptedDownsell {
			stage = observability.StageDownsellAccepted
		}
		s.metrics.RecordFunnel(stage, string(record.DownsellVariant))
		s.publishEvent(ctx, events.Event{
			Type:           events.EventDownsellResponded,
			UserID:         record.UserID,
			CancellationID: record.ID,
			SubscriptionID: record.SubscriptionID,
			Payload: events.DownsellRespondedPayload{
				Accepted:        *patch.AcceptedDownsell,
				DownsellVariant: record.DownsellVariant,
			},
		})
	}
	return record, nil
}

func (s *CancellationService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func patchedFields(p domain.CancellationPatch) []string {
	fields := []string{}
	if p.DownsellVariant != nil {
		fields = append(fields, "downsell_variant")
	}
	if p.RolesApplied != nil {
		fields = append(fields, "roles_applied")
	}
	if p.CompaniesEmailed != nil {
		fields = append(fields, "companies_emailed")
	}
	if p.CompaniesInterviewed != nil {
		fields = append(fields, "companies_interviewed")
	}
	if p.FoundJobWithMigrateMate != nil {
		fields = append(fields, "found_job_with_migrate_mate")
	}
	if p.Feedback != nil {
		fields = append(fields, "feedback")
	}
	if p.Reason != nil {
		fields = append(fields, "reason")
	}
	if p.AcceptedDownsell != nil {
		fields = append(fields, "accepted_downsell")
	}
	if p.HasImmigrationLawyer != nil {
		fields = append(fields, "has_immigration_lawyer")
	}
	if p.VisaType != nil {
		fields = append(fields, "visa_type")
	}
	return fields
}
