package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_MINUTES", "")
	t.Setenv("REFRESH_TOKEN_EXPIRATION_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.JWT.ExpirationMinutes)
	assert.Equal(t, 7, cfg.JWT.RefreshExpirationDays)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, 2*time.Second, cfg.Session.WriteTimeout)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_EXPIRATION_MINUTES", "15")
	t.Setenv("REFRESH_TOKEN_EXPIRATION_DAYS", "30")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		JWT:    JWTConfig{Key: "short", Issuer: "iss", Audience: "aud"},
		Crypto: CryptoConfig{FieldKey: "f", IndexKey: "i"},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Key = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.JWT.Audience = ""
	assert.Error(t, cfg.Validate())

	cfg.JWT.Audience = "aud"
	cfg.Crypto.IndexKey = ""
	assert.Error(t, cfg.Validate())
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("nonsense", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}
