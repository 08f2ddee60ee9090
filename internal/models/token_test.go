package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenState(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	cases := []struct {
		name    string
		token   RefreshToken
		expired bool
		active  bool
	}{
		{"fresh", RefreshToken{ExpiresAt: now.Add(time.Hour)}, false, true},
		{"expires exactly now", RefreshToken{ExpiresAt: now}, true, false},
		{"expired", RefreshToken{ExpiresAt: now.Add(-time.Hour)}, true, false},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expired, tc.token.IsExpired(now))
			assert.Equal(t, tc.active, tc.token.IsActive(now))
		})
	}
}

func TestRefreshedCredentialsContext(t *testing.T) {
	_, ok := RefreshedCredentialsFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithRefreshedCredentials(context.Background(), &RefreshedCredentials{UserID: 9, AccessToken: "a"})
	creds, ok := RefreshedCredentialsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(9), creds.UserID)
}

func TestEffectiveRoleDefaultsToUser(t *testing.T) {
	assert.Equal(t, RoleUser, (&User{}).EffectiveRole())
	assert.Equal(t, RoleAdmin, (&User{Role: RoleAdmin}).EffectiveRole())
}

func TestAccessClaimsUserID(t *testing.T) {
	claims := &AccessClaims{}
	claims.Subject = "42"
	id, ok := claims.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	claims.Subject = "abc"
	_, ok = claims.UserID()
	assert.False(t, ok)

	var nilClaims *AccessClaims
	_, ok = nilClaims.UserID()
	assert.False(t, ok)
}
