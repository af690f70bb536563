package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/service"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// CancellationsHandler manages cancellation record endpoints.
type CancellationsHandler struct {
	service *service.CancellationService
}

// NewCancellationsHandler constructs handler.
func NewCancellationsHandler(cancellationService *service.CancellationService) *CancellationsHandler {
	return &CancellationsHandler{service: cancellationService}
}

// Create POST /cancellations.
func (h *CancellationsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCancellationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.UserID) == "" || req.DownsellVariant == "" {
		return apperrors.NewValidationError("user_id and downsell_variant required", nil)
	}
	if !auth.Owns(c, req.UserID) {
		return apperrors.NewForbidden("session does not belong to user")
	}

	record, err := h.service.Start(c.UserContext(), service.StartInput{
		UserID:         req.UserID,
		SubscriptionID: req.SubscriptionID,
		Variant:        req.DownsellVariant,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CancellationEnvelope{Cancellation: cancellationResponse(record)})
}

// Patch PATCH /cancellations.
func (h *CancellationsHandler) Patch(c *fiber.Ctx) error {
	var req dto.PatchCancellationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ID) == "" {
		return apperrors.NewValidationError("id required", nil)
	}
	if err := h.authorize(c, req.ID); err != nil {
		return err
	}

	record, err := h.service.Patch(c.UserContext(), req.ID, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.CancellationEnvelope{Cancellation: cancellationResponse(record)})
}

// Get GET /cancellations/:id.
func (h *CancellationsHandler) Get(c *fiber.Ctx) error {
	record, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !auth.Owns(c, record.UserID) {
		return apperrors.NewForbidden("session does not belong to user")
	}
	return c.JSON(dto.CancellationEnvelope{Cancellation: cancellationResponse(record)})
}

func (h *CancellationsHandler) authorize(c *fiber.Ctx, id string) error {
	if _, ok := auth.SessionFromContext(c); !ok {
		return nil
	}
	record, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !auth.Owns(c, record.UserID) {
		return apperrors.NewForbidden("session does not belong to user")
	}
	return nil
}
