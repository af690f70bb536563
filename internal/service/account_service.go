package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/repository"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

// AccountService resolves the account a cancellation session runs for.
type AccountService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	now           func() time.Time
}

// AccountDependencies bundles repositories for the account service.
type AccountDependencies struct {
	UserRepo         repository.UserRepository
	SubscriptionRepo repository.SubscriptionRepository
}

// SeedInput describes a development account to create.
type SeedInput struct {
	Email        string
	MonthlyPrice *int
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		users:         deps.UserRepo,
		subscriptions: deps.SubscriptionRepo,
		now:           time.Now,
	}
}

// CurrentAccount returns the most recently created user and their newest
// subscription. Either may be nil.
func (s *AccountService) CurrentAccount(ctx context.Context) (*domain.User, *domain.Subscription, error) {
	user, err := s.users.GetLatest(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("latest user: %w", err)
	}
	if user == nil {
		return nil, nil, nil
	}
	sub, err := s.subscriptions.LatestForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("latest subscription: %w", err)
	}
	return user, sub, nil
}

// SeedDevUser inserts a user with one active subscription.
func (s *AccountService) SeedDevUser(ctx context.Context, input SeedInput) (*domain.User, *domain.Subscription, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = fmt.Sprintf("user_%d@example.com", s.now().UnixMilli())
	}
	price := domain.DefaultMonthlyPriceCents
	if input.MonthlyPrice != nil {
		if *input.MonthlyPrice < 0 {
			return nil, nil, apperrors.NewValidationError("monthly_price must be non-negative", nil)
		}
		price = *input.MonthlyPrice
	}

	user := &domain.User{Email: email}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	sub := &domain.Subscription{
		UserID:       user.ID,
		MonthlyPrice: price,
		Status:       domain.SubscriptionStatusActive,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, nil, err
	}
	return user, sub, nil
}
