package handlers

import (
	"github.com/migratemate/cancellation-flow/internal/api/dto"
	"github.com/migratemate/cancellation-flow/internal/domain"
)

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func subscriptionResponse(s *domain.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		MonthlyPrice: s.MonthlyPrice,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
	}
}

func cancellationResponse(c *domain.Cancellation) dto.CancellationResponse {
	return dto.CancellationResponse{
		ID:                      c.ID,
		UserID:                  c.UserID,
		SubscriptionID:          c.SubscriptionID,
		DownsellVariant:         c.DownsellVariant,
		RolesApplied:            c.RolesApplied,
		CompaniesEmailed:        c.CompaniesEmailed,
		CompaniesInterviewed:    c.CompaniesInterviewed,
		FoundJobWithMigrateMate: c.FoundJobWithMigrateMate,
		Feedback:                c.Feedback,
		Reason:                  c.Reason,
		AcceptedDownsell:        c.AcceptedDownsell,
		HasImmigrationLawyer:    c.HasImmigrationLawyer,
		VisaType:                c.VisaType,
		CreatedAt:               c.CreatedAt,
	}
}
