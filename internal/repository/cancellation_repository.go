package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// CancellationRepository encapsulates cancellation record persistence.
type CancellationRepository interface {
	Create(ctx context.Context, c *domain.Cancellation) error
	GetByID(ctx context.Context, id string) (*domain.Cancellation, error)
	// Patch updates only the fields set in patch and returns the stored record.
	Patch(ctx context.Context, id string, patch domain.CancellationPatch) (*domain.Cancellation, error)
}

type cancellationRepository struct {
	pool *pgxpool.Pool
}

// NewCancellationRepository instantiates repository.
func NewCancellationRepository(pool *pgxpool.Pool) CancellationRepository {
	return &cancellationRepository{pool: pool}
}

const cancellationColumns = `id, user_id, subscription_id, downsell_variant, roles_applied, companies_emailed,
        companies_interviewed, found_job_with_migrate_mate, feedback, reason, accepted_downsell,
        has_immigration_lawyer, visa_type, created_at`

func (r *cancellationRepository) Create(ctx context.Context, c *domain.Cancellation) error {
	const query = `
        INSERT INTO cancellations (user_id, subscription_id, downsell_variant)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, c.UserID, c.SubscriptionID, c.DownsellVariant).
		Scan(&c.ID, &c.CreatedAt)
}

func (r *cancellationRepository) GetByID(ctx context.Context, id string) (*domain.Cancellation, error) {
	query := `SELECT ` + cancellationColumns + ` FROM cancellations WHERE id=$1`
	return scanCancellation(r.pool.QueryRow(ctx, query, id))
}

func (r *cancellationRepository) Patch(ctx context.Context, id string, patch domain.CancellationPatch) (*domain.Cancellation, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.DownsellVariant != nil {
		add("downsell_variant", *patch.DownsellVariant)
	}
	if patch.RolesApplied != nil {
		add("roles_applied", *patch.RolesApplied)
	}
	if patch.CompaniesEmailed != nil {
		add("companies_emailed", *patch.CompaniesEmailed)
	}
	if patch.CompaniesInterviewed != nil {
		add("companies_interviewed", *patch.CompaniesInterviewed)
	}
	if patch.FoundJobWithMigrateMate != nil {
		add("found_job_with_migrate_mate", *patch.FoundJobWithMigrateMate)
	}
	if patch.Feedback != nil {
		add("feedback", *patch.Feedback)
	}
	if patch.Reason != nil {
		add("reason", *patch.Reason)
	}
	if patch.AcceptedDownsell != nil {
		add("accepted_downsell", *patch.AcceptedDownsell)
	}
	if patch.HasImmigrationLawyer != nil {
		add("has_immigration_lawyer", *patch.HasImmigrationLawyer)
	}
	if patch.VisaType != nil {
		add("visa_type", *patch.VisaType)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE cancellations SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), cancellationColumns)
	return scanCancellation(r.pool.QueryRow(ctx, query, args...))
}

func scanCancellation(row pgx.Row) (*domain.Cancellation, error) {
	var c domain.Cancellation
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.SubscriptionID,
		&c.DownsellVariant,
		&c.RolesApplied,
		&c.CompaniesEmailed,
		&c.CompaniesInterviewed,
		&c.FoundJobWithMigrateMate,
		&c.Feedback,
		&c.Reason,
		&c.AcceptedDownsell,
		&c.HasImmigrationLawyer,
		&c.VisaType,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
