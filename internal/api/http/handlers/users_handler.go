package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/service"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// UsersHandler serves the current-account lookup and the development seeder.
type UsersHandler struct {
	accounts   *service.AccountService
	tokens     *auth.TokenManager
	production bool
	logger     *zap.Logger
}

// NewUsersHandler constructs handler. tokens may be nil, in which case no
// session token is issued.
func NewUsersHandler(accounts *service.AccountService, tokens *auth.TokenManager, production bool, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{accounts: accounts, tokens: tokens, production: production, logger: logger}
}

// First handles GET /users/first.
func (h *UsersHandler) First(c *fiber.Ctx) error {
	user, sub, err := h.accounts.CurrentAccount(c.UserContext())
	if err != nil {
		return err
	}

	resp := dto.CurrentAccountResponse{}
	if user == nil {
		return c.JSON(resp)
	}
	u := userResponse(user)
	resp.User = &u
	subscriptionID := ""
	if sub != nil {
		s := subscriptionResponse(sub)
		resp.Subscription = &s
		subscriptionID = sub.ID
	}

	if h.tokens != nil {
		token, exp, err := h.tokens.GenerateToken(user.ID, subscriptionID)
		if err != nil {
			h.logger.Warn("issue session token", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			resp.SessionToken = token
			resp.SessionExpiresAt = &exp
		}
	}
	return c.JSON(resp)
}

// SeedDevUser handles POST /dev/seed-user. Disabled in production.
func (h *UsersHandler) SeedDevUser(c *fiber.Ctx) error {
	if h.production {
		return apperrors.NewForbidden("not allowed in production")
	}
	var req dto.SeedUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	user, sub, err := h.accounts.SeedDevUser(c.UserContext(), service.SeedInput{
		Email:        req.Email,
		MonthlyPrice: req.MonthlyPrice,
	})
	if err != nil {
		return err
	}
	h.logger.Info("seeded dev user", zap.String("user_id", user.ID), zap.String("subscription_id", sub.ID))
	return c.Status(fiber.StatusCreated).JSON(dto.SeedUserResponse{
		User:         userResponse(user),
		Subscription: subscriptionResponse(sub),
	})
}
