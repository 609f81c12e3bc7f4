package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filegate/api/internal/models"
	"filegate/api/internal/store"
)

type ShareRepository struct {
	pool *pgxpool.Pool
}

func NewShareRepository(pool *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{pool: pool}
}

func (r *ShareRepository) Create(ctx context.Context, rec models.ShareRecord) error {
	const query = `
		INSERT INTO shares (
			token, owner_id, owner_email, file_name, size_bytes, public, shared_with,
			password_hash, require_totp, available_from, available_to, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Token,
		rec.OwnerID,
		rec.OwnerEmail,
		rec.FileName,
		rec.SizeBytes,
		rec.Public,
		rec.SharedWith,
		rec.PasswordHash,
		rec.RequireTOTP,
		rec.AvailableFrom,
		rec.AvailableTo,
	)
	return err
}

func (r *ShareRepository) GetByToken(ctx context.Context, token string) (models.ShareRecord, error) {
	const query = `
		SELECT token, owner_id, owner_email, file_name, size_bytes, public, shared_with,
		       password_hash, require_totp, available_from, available_to, created_at
		FROM shares WHERE token = $1
	`
	return r.scanShare(r.pool.QueryRow(ctx, query, token))
}

func (r *ShareRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ShareRecord, error) {
	const query = `
		SELECT token, owner_id, owner_email, file_name, size_bytes, public, shared_with,
		       password_hash, require_totp, available_from, available_to, created_at
		FROM shares WHERE owner_id = $1
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ShareRecord
	for rows.Next() {
		rec, err := r.scanShare(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ShareRepository) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM shares WHERE token = $1`
	cmd, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrShareNotFound
	}
	return nil
}

func (r *ShareRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `DELETE FROM shares WHERE available_to IS NOT NULL AND available_to < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *ShareRepository) scanShare(row pgx.Row) (models.ShareRecord, error) {
	var rec models.ShareRecord
	if err := row.Scan(
		&rec.Token,
		&rec.OwnerID,
		&rec.OwnerEmail,
		&rec.FileName,
		&rec.SizeBytes,
		&rec.Public,
		&rec.SharedWith,
		&rec.PasswordHash,
		&rec.RequireTOTP,
		&rec.AvailableFrom,
		&rec.AvailableTo,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ShareRecord{}, store.ErrShareNotFound
		}
		return models.ShareRecord{}, err
	}
	return rec, nil
}
