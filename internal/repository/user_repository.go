package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// UserRepository defines persistence access for account holders.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetLatest returns the most recently created user, or nil when there is none.
	GetLatest(ctx context.Context) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email)
        VALUES ($1)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, user.Email).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, created_at FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetLatest(ctx context.Context) (*domain.User, error) {
	const query = `
        SELECT id, email, created_at
        FROM users ORDER BY created_at DESC LIMIT 1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query).Scan(&user.ID, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
