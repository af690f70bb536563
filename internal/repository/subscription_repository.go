package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// SubscriptionRepository encapsulates subscription persistence.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	// LatestForUser returns the user's newest subscription, or nil when there is none.
	LatestForUser(ctx context.Context, userID string) (*domain.Subscription, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) (*domain.Subscription, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository instantiates repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, user_id, monthly_price, status, created_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (user_id, monthly_price, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, sub.UserID, sub.MonthlyPrice, sub.Status).
		Scan(&sub.ID, &sub.CreatedAt)
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	return scanSubscription(r.pool.QueryRow(ctx, query, id))
}

func (r *subscriptionRepository) LatestForUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
        FROM subscriptions WHERE user_id=$1
        ORDER BY created_at DESC LIMIT 1`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	query := `UPDATE subscriptions SET status=$1 WHERE id=$2 RETURNING ` + subscriptionColumns
	return scanSubscription(r.pool.QueryRow(ctx, query, status, id))
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.MonthlyPrice,
		&sub.Status,
		&sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
