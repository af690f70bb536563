package dto

import (
	"time"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// CreateCancellationRequest payload for POST /cancellations.
type CreateCancellationRequest struct {
	UserID          string                 `json:"user_id"`
	SubscriptionID  string                 `json:"subscription_id,omitempty"`
	DownsellVariant domain.DownsellVariant `json:"downsell_variant"`
}

// CancellationFields are the patchable columns. Omitted fields stay untouched.
type CancellationFields struct {
	DownsellVariant         *domain.DownsellVariant    `json:"downsell_variant,omitempty"`
	RolesApplied            *string                    `json:"roles_applied,omitempty"`
	CompaniesEmailed        *string                    `json:"companies_emailed,omitempty"`
	CompaniesInterviewed    *string                    `json:"companies_interviewed,omitempty"`
	FoundJobWithMigrateMate *bool                      `json:"found_job_with_migrate_mate,omitempty"`
	Feedback                *string                    `json:"feedback,omitempty"`
	Reason                  *domain.CancellationReason `json:"reason,omitempty"`
	AcceptedDownsell        *bool                      `json:"accepted_downsell,omitempty"`
	HasImmigrationLawyer    *bool                      `json:"has_immigration_lawyer,omitempty"`
	VisaType                *string                    `json:"visa_type,omitempty"`
}

// PatchCancellationRequest payload for PATCH /cancellations.
type PatchCancellationRequest struct {
	ID string `json:"id"`
	CancellationFields
}

// Patch converts the request fields into a domain patch.
func (f CancellationFields) Patch() domain.CancellationPatch {
	return domain.CancellationPatch{
		DownsellVariant:         f.DownsellVariant,
		RolesApplied:            f.RolesApplied,
		CompaniesEmailed:        f.CompaniesEmailed,
		CompaniesInterviewed:    f.CompaniesInterviewed,
		FoundJobWithMigrateMate: f.FoundJobWithMigrateMate,
		Feedback:                f.Feedback,
		Reason:                  f.Reason,
		AcceptedDownsell:        f.AcceptedDownsell,
		HasImmigrationLawyer:    f.HasImmigrationLawyer,
		VisaType:                f.VisaType,
	}
}

// CancellationResponse is the persisted record shape. Unanswered fields are null.
type CancellationResponse struct {
	ID                      string                     `json:"id"`
	UserID                  string                     `json:"user_id"`
	SubscriptionID          string                     `json:"subscription_id"`
	DownsellVariant         domain.DownsellVariant     `json:"downsell_variant"`
	RolesApplied            *string                    `json:"roles_applied"`
	CompaniesEmailed        *string                    `json:"companies_emailed"`
	CompaniesInterviewed    *string                    `json:"companies_interviewed"`
	FoundJobWithMigrateMate *bool                      `json:"found_job_with_migrate_mate"`
	Feedback                *string                    `json:"feedback"`
	Reason                  *domain.CancellationReason `json:"reason"`
	AcceptedDownsell        *bool                      `json:"accepted_downsell"`
	HasImmigrationLawyer    *bool                      `json:"has_immigration_lawyer"`
	VisaType                *string                    `json:"visa_type"`
	CreatedAt               time.Time                  `json:"created_at"`
}

// CancellationEnvelope wraps a cancellation response.
type CancellationEnvelope struct {
	Cancellation CancellationResponse `json:"cancellation"`
}

// ErrorBody mirrors the {"error": {...}} envelope written by the error middleware.
type ErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}
