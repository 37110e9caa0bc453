package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"videotube/internal/domain"
)

// PgRefreshTokenRepository guarda la referencia del refresh token en la fila del usuario.
type PgRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgRefreshTokenRepository(pool *pgxpool.Pool) *PgRefreshTokenRepository {
	return &PgRefreshTokenRepository{pool: pool}
}

func (r *PgRefreshTokenRepository) GetRefreshRef(ctx context.Context, userID string) (domain.RefreshRef, bool, error) {
	const query = `
		SELECT refresh_token_hash, refresh_issued_at, refresh_expires_at
		FROM users
		WHERE id = $1
	`
	var (
		hash      *string
		issuedAt  *time.Time
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(&hash, &issuedAt, &expiresAt)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return domain.RefreshRef{}, false, nil
		}
		return domain.RefreshRef{}, false, err
	}
	if hash == nil || *hash == "" {
		return domain.RefreshRef{}, false, nil
	}
	ref := domain.RefreshRef{UserID: userID, TokenHash: *hash}
	if issuedAt != nil {
		ref.IssuedAt = *issuedAt
	}
	if expiresAt != nil {
		ref.ExpiresAt = *expiresAt
	}
	return ref, true, nil
}

// SetRefreshRef sobrescribe la referencia en un único UPDATE.
func (r *PgRefreshTokenRepository) SetRefreshRef(ctx context.Context, ref domain.RefreshRef) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $2, refresh_issued_at = $3, refresh_expires_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, ref.UserID, ref.TokenHash, ref.IssuedAt, ref.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshRef reemplaza la referencia solo si el hash guardado sigue siendo oldHash.
func (r *PgRefreshTokenRepository) SwapRefreshRef(ctx context.Context, userID, oldHash string, next domain.RefreshRef) (bool, error) {
	const query = `
		UPDATE users
		SET refresh_token_hash = $3, refresh_issued_at = $4, refresh_expires_at = $5
		WHERE id = $1 AND refresh_token_hash = $2
	`
	tag, err := r.pool.Exec(ctx, query, userID, oldHash, next.TokenHash, next.IssuedAt, next.ExpiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRefreshTokenRepository) ClearRefreshRef(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_issued_at = NULL, refresh_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
