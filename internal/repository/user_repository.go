package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// UserRepository defines persistence access for end-users.
type UserRepository interface {
	// Upsert creates the user or updates name and language.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// Language returns the stored language or domain.DefaultLanguage.
	Language(ctx context.Context, id int64) (string, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, display_name, lang)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET display_name=EXCLUDED.display_name, lang=EXCLUDED.lang, updated_at=NOW()
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.ID,
		user.DisplayName,
		user.Language,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, display_name, lang, created_at, updated_at FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Language,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Language(ctx context.Context, id int64) (string, error) {
	var lang string
	err := r.pool.QueryRow(ctx, `SELECT lang FROM users WHERE id=$1`, id).Scan(&lang)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultLanguage, nil
	}
	if err != nil {
		return domain.DefaultLanguage, err
	}
	return lang, nil
}
