package models

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshToken represents a persisted refresh token. Rows are never deleted,
// only revoked.
type RefreshToken struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"token"`
	JwtToken  string     `db:"jwt_token" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// IsExpired reports whether now is at or past the expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// AccessClaims is the payload of a signed access token.
type AccessClaims struct {
	Email     string   `json:"email,omitempty"`
	Mobile    string   `json:"mobile,omitempty"`
	Name      string   `json:"name"`
	Role      UserRole `json:"role"`
	IsPremium bool     `json:"isPremium"`
	jwt.RegisteredClaims
}

// UnverifiedClaims is what can be read from a token without checking its
// signature. It must never be used for access control.
type UnverifiedClaims struct {
	UserID    *int64
	ExpiresAt time.Time
}

// UserID parses the subject claim. It returns false when the subject is not
// a positive integer.
func (c *AccessClaims) UserID() (int64, bool) {
	if c == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
