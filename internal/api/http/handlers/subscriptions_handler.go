package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/service"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// SubscriptionsHandler toggles the pending-cancellation marker.
type SubscriptionsHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionsHandler constructs handler.
func NewSubscriptionsHandler(subscriptionService *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{service: subscriptionService}
}

// Patch PATCH /subscriptions.
func (h *SubscriptionsHandler) Patch(c *fiber.Ctx) error {
	var req dto.PatchSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ID) == "" || req.PendingCancellation == nil {
		return apperrors.NewValidationError("id and pending_cancellation required", nil)
	}
	if session, ok := auth.SessionFromContext(c); ok && session.SubscriptionID != "" && session.SubscriptionID != req.ID {
		return apperrors.NewForbidden("session does not belong to subscription")
	}

	sub, err := h.service.SetPendingCancellation(c.UserContext(), req.ID, *req.PendingCancellation)
	if err != nil {
		return err
	}
	return c.JSON(dto.SubscriptionEnvelope{Subscription: subscriptionResponse(sub)})
}
