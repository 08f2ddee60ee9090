package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medichat-api/internal/models"
)

var refreshTokenColumnNames = []string{"id", "user_id", "token", "jwt_token", "created_at", "expires_at", "revoked_at"}

func TestGetRefreshTokensByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now().UTC()
	revoked := now.Add(-time.Hour)
	mock.ExpectQuery("SELECT .* FROM refresh_tokens WHERE user_id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumnNames).
			AddRow(int64(2), int64(7), "tok-2", "jwt-2", now, now.Add(time.Hour), nil).
			AddRow(int64(1), int64(7), "tok-1", "jwt-1", now.Add(-time.Hour), now.Add(time.Hour), revoked))

	tokens, err := repo.GetRefreshTokensByUserID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.True(t, tokens[0].IsActive(now))
	assert.False(t, tokens[1].IsActive(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRefreshTokenReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	token := &models.RefreshToken{UserID: 7, Token: "tok", JwtToken: "jwt", ExpiresAt: time.Now().Add(time.Hour)}
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(int64(7), "tok", "jwt", sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	id, err := repo.SaveRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)
	assert.Equal(t, int64(41), token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRefreshTokenPropagatesFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("INSERT INTO refresh_tokens").WillReturnError(errors.New("connection reset"))

	_, err := repo.SaveRefreshToken(context.Background(), &models.RefreshToken{UserID: 1})
	assert.ErrorContains(t, err, "connection reset")
}

func TestUpdateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	token := &models.RefreshToken{ID: 41, Token: "tok", JwtToken: "jwt-new", ExpiresAt: time.Now()}
	mock.ExpectExec("UPDATE refresh_tokens SET").
		WithArgs(int64(41), "tok", "jwt-new", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET").
		WithArgs(int64(41), "tok", "jwt-new", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTokenNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("SELECT .* FROM refresh_tokens WHERE token = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(refreshTokenColumnNames))

	_, err := repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRotateRefreshTokenRevokesAndInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now().UTC()
	next := &models.RefreshToken{UserID: 7, Token: "tok-next", JwtToken: "jwt-next", ExpiresAt: now.Add(time.Hour)}
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at = \\$2 WHERE id = \\$1 AND revoked_at IS NULL").
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(int64(7), "tok-next", "jwt-next", now, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	rotated, err := repo.RotateRefreshToken(context.Background(), 3, now, next)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.Equal(t, int64(4), next.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenAlreadyRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	next := &models.RefreshToken{UserID: 7, Token: "tok-next"}
	rotated, err := repo.RotateRefreshToken(context.Background(), 3, now, next)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Zero(t, next.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenInsertFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	rotated, err := repo.RotateRefreshToken(context.Background(), 3, now, &models.RefreshToken{UserID: 7, Token: "tok-next"})
	require.Error(t, err)
	assert.False(t, rotated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
