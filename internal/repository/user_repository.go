package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filegate/api/internal/models"
	"filegate/api/internal/store"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, email, username, password_hash, role, twofa_state, twofa_secret, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		ON CONFLICT (email) DO NOTHING
	`

	cmd, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.TwoFactor.State,
		user.TwoFactor.Secret,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrEmailTaken
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, email, username, password_hash, role, twofa_state, twofa_secret, created_at, updated_at
		FROM users WHERE email = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, email, username, password_hash, role, twofa_state, twofa_secret, created_at, updated_at
		FROM users WHERE id = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateTwoFactor(ctx context.Context, id string, tf models.TwoFactor) error {
	const query = `
		UPDATE users SET twofa_state = $2, twofa_secret = $3, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, tf.State, tf.Secret)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.TwoFactor.State,
		&user.TwoFactor.Secret,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
