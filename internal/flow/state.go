package flow

import (
	"context"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// State is every answer collected by the wizard plus the current step.
// Nil pointers are unanswered tri-state questions.
type State struct {
	Step Step

	// found-job branch
	HasFoundJob             bool
	FoundJobWithMigrateMate *bool
	JobSearch               SurveyAnswers
	Feedback                string
	HasImmigrationLawyer    *bool
	VisaType                string

	// still-looking branch
	DownsellVariant  domain.DownsellVariant
	AcceptedDownsell *bool
	Survey           SurveyAnswers
	Reason           *domain.CancellationReason
	FollowUpText     string
}

func newState() State {
	return State{Step: StepInitial}
}

func (s State) clone() State {
	out := s
	out.FoundJobWithMigrateMate = cloneBool(s.FoundJobWithMigrateMate)
	out.HasImmigrationLawyer = cloneBool(s.HasImmigrationLawyer)
	out.AcceptedDownsell = cloneBool(s.AcceptedDownsell)
	if s.Reason != nil {
		r := *s.Reason
		out.Reason = &r
	}
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Session identifies who the wizard runs for and the server rows it writes.
type Session struct {
	UserID                 string
	Email                  string
	SubscriptionID         string
	SubscriptionPriceCents *int
	CancellationRecordID   string
}

// Account is the current user and subscription as reported by the backend.
type Account struct {
	UserID                 string
	Email                  string
	SubscriptionID         string
	SubscriptionPriceCents *int
}

// CreatedRecord is the result of creating a cancellation record.
type CreatedRecord struct {
	ID             string
	SubscriptionID string
}

// Gateway persists wizard answers. Implementations return errors; the
// Machine decides whether they block a transition.
type Gateway interface {
	FetchCurrentUserAndSubscription(ctx context.Context) (Account, error)
	CreateCancellationRecord(ctx context.Context, userID, subscriptionID string, variant domain.DownsellVariant) (CreatedRecord, error)
	PatchCancellationRecord(ctx context.Context, id string, patch domain.CancellationPatch) error
	MarkSubscriptionPendingCancellation(ctx context.Context, subscriptionID string) error
}

// LoadSession builds a Session from the backend's current account. On error
// the returned Session is empty and the flow runs degraded: default pricing
// and no persisted record.
func LoadSession(ctx context.Context, gw Gateway) (Session, error) {
	account, err := gw.FetchCurrentUserAndSubscription(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:                 account.UserID,
		Email:                  account.Email,
		SubscriptionID:         account.SubscriptionID,
		SubscriptionPriceCents: account.SubscriptionPriceCents,
	}, nil
}
