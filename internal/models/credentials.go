package models

import (
	"context"
	"time"
)

// RefreshedCredentials carries tokens minted while authorizing a request so
// the response layer can hand them back to the client.
type RefreshedCredentials struct {
	UserID                 int64     `json:"userId"`
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpiration time.Time `json:"refreshTokenExpiration"`
}

type refreshedCredentialsKey struct{}

// ContextWithRefreshedCredentials returns a child context carrying creds.
func ContextWithRefreshedCredentials(ctx context.Context, creds *RefreshedCredentials) context.Context {
	return context.WithValue(ctx, refreshedCredentialsKey{}, creds)
}

// RefreshedCredentialsFromContext returns the credentials attached to ctx, if any.
func RefreshedCredentialsFromContext(ctx context.Context) (*RefreshedCredentials, bool) {
	if ctx == nil {
		return nil, false
	}
	creds, ok := ctx.Value(refreshedCredentialsKey{}).(*RefreshedCredentials)
	return creds, ok && creds != nil
}
