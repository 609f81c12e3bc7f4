package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filegate/api/internal/models"
)

// PolicyRepository persists the single admin policy row. A missing row reads
// back as the default policy so a fresh database behaves sanely.
type PolicyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

func (r *PolicyRepository) Get(ctx context.Context) (models.Policy, error) {
	const query = `
		SELECT max_file_size_mb, min_validity_hours, max_validity_days, default_validity_days, min_password_length
		FROM policy WHERE id = 1
	`

	var p models.Policy
	if err := r.pool.QueryRow(ctx, query).Scan(
		&p.MaxFileSizeMB,
		&p.MinValidityHours,
		&p.MaxValidityDays,
		&p.DefaultValidityDays,
		&p.MinPasswordLength,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultPolicy(), nil
		}
		return models.Policy{}, err
	}
	return p, nil
}

func (r *PolicyRepository) Update(ctx context.Context, p models.Policy) error {
	const query = `
		INSERT INTO policy (id, max_file_size_mb, min_validity_hours, max_validity_days, default_validity_days, min_password_length)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			max_file_size_mb = EXCLUDED.max_file_size_mb,
			min_validity_hours = EXCLUDED.min_validity_hours,
			max_validity_days = EXCLUDED.max_validity_days,
			default_validity_days = EXCLUDED.default_validity_days,
			min_password_length = EXCLUDED.min_password_length
	`
	_, err := r.pool.Exec(ctx, query,
		p.MaxFileSizeMB,
		p.MinValidityHours,
		p.MaxValidityDays,
		p.DefaultValidityDays,
		p.MinPasswordLength,
	)
	return err
}
