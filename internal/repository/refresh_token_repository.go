package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medichat-api/internal/models"
)

const refreshTokenColumns = `id, user_id, token, jwt_token, created_at, expires_at, revoked_at`

// RefreshTokenRepository persists refresh tokens. Rows are soft state: they
// are revoked, never deleted.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository.
func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// GetRefreshTokensByUserID returns every token owned by the user, newest first.
func (r *RefreshTokenRepository) GetRefreshTokensByUserID(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	var tokens []models.RefreshToken
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	return tokens, nil
}

// FindByToken returns the row holding the opaque token string.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// SaveRefreshToken inserts the token and returns its generated id.
func (r *RefreshTokenRepository) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) (int64, error) {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (user_id, token, jwt_token, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, query,
		token.UserID, token.Token, token.JwtToken, token.CreatedAt, token.ExpiresAt, token.RevokedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("save refresh token: %w", err)
	}
	token.ID = id
	return id, nil
}

// UpdateRefreshToken writes the mutable columns of an existing row. It
// reports false when no row has the token's id.
func (r *RefreshTokenRepository) UpdateRefreshToken(ctx context.Context, token *models.RefreshToken) (bool, error) {
	const query = `UPDATE refresh_tokens SET token = $2, jwt_token = $3, expires_at = $4, revoked_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, token.ID, token.Token, token.JwtToken, token.ExpiresAt, token.RevokedAt)
	if err != nil {
		return false, fmt.Errorf("update refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update refresh token rows: %w", err)
	}
	return affected > 0, nil
}

// RotateRefreshToken revokes the row with oldID and inserts next in one
// transaction. The revoke only applies to a row that is not yet revoked;
// when it matches nothing the transaction is rolled back and false is
// returned, so a token can be rotated at most once.
func (r *RefreshTokenRepository) RotateRefreshToken(ctx context.Context, oldID int64, revokedAt time.Time, next *models.RefreshToken) (rotated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin refresh rotation: %w", err)
	}
	defer func() {
		if err != nil || !rotated {
			_ = tx.Rollback()
		}
	}()

	const revokeQuery = `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	res, err := tx.ExecContext(ctx, revokeQuery, oldID, revokedAt)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if next.CreatedAt.IsZero() {
		next.CreatedAt = revokedAt
	}
	const insertQuery = `INSERT INTO refresh_tokens (user_id, token, jwt_token, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int64
	if err = tx.QueryRowxContext(ctx, insertQuery,
		next.UserID, next.Token, next.JwtToken, next.CreatedAt, next.ExpiresAt, next.RevokedAt,
	).Scan(&id); err != nil {
		return false, fmt.Errorf("save rotated refresh token: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit refresh rotation: %w", err)
	}
	next.ID = id
	return true, nil
}
