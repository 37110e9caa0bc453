package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByLogin(ctx context.Context, login string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, username, email, full_name, avatar_url, cover_url, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverURL,
		user.PasswordHash,
		user.CreatedAt,
	)
	if isPgCode(err, pgUniqueViolation) {
		return domain.ErrConflict.Withf("username or email already registered")
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, username, email, full_name, avatar_url, cover_url, password_hash, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverURL,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}

// GetByLogin busca por username o email (ya normalizados a minúsculas).
func (r *PgUserRepository) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	const query = `
		SELECT id, username, email, full_name, avatar_url, cover_url, password_hash, created_at
		FROM users
		WHERE username = $1 OR email = $1
		LIMIT 1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, login).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverURL,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}
