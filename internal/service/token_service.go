package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/pkg/config"
)

// ErrSigningKeyMissing is returned when no HMAC key is configured.
var ErrSigningKeyMissing = errors.New("jwt signing key is not configured")

const (
	claimUserID         = "UserId"
	claimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"

	refreshTokenBytes         = 64
	defaultAccessTokenMinutes = 60
)

// TokenService issues and checks access tokens. Methods with "Unverified" or
// "FromToken" in their name never check the signature and must not be used
// for access control.
type TokenService struct {
	cfg    config.JWTConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(cfg config.JWTConfig, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpirationMinutes <= 0 {
		cfg.ExpirationMinutes = defaultAccessTokenMinutes
	}
	return &TokenService{cfg: cfg, logger: logger, now: time.Now}
}

// GenerateAccessToken signs an HS256 token describing user.
func (s *TokenService) GenerateAccessToken(user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user is required")
	}
	if s.cfg.Key == "" {
		s.logger.Error("cannot sign access token", zap.Error(ErrSigningKeyMissing))
		return "", ErrSigningKeyMissing
	}

	issuedAt := s.now().UTC()
	claims := &models.AccessClaims{
		Name:      user.Name,
		Role:      user.EffectiveRole(),
		IsPremium: user.IsPremium,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.cfg.AccessTTL())),
		},
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}
	if user.Mobile != nil {
		claims.Mobile = *user.Mobile
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Key))
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Int64("user_id", user.ID), zap.Error(err))
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, issuer, audience and expiry with no
// leeway and returns the verified claims.
func (s *TokenService) VerifyAccessToken(token string) (*models.AccessClaims, bool) {
	claims := &models.AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if s.cfg.Key == "" {
			return nil, ErrSigningKeyMissing
		}
		return []byte(s.cfg.Key), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		s.logger.Warn("access token rejected", zap.Error(err))
		return nil, false
	}
	return claims, true
}

// ValidateAccessToken reports whether token is a valid access token.
func (s *TokenService) ValidateAccessToken(token string) bool {
	_, ok := s.VerifyAccessToken(token)
	return ok
}

// GetUserIDFromToken reads the subject without verifying the signature.
func (s *TokenService) GetUserIDFromToken(token string) *int64 {
	claims, err := parseUnverified(token)
	if err != nil {
		return nil
	}
	if id := int64Claim(claims["sub"]); id != nil {
		return id
	}
	return userIDClaim(claims)
}

// GetTokenExpiration returns the unverified exp claim, or the zero time when
// the token cannot be read.
func (s *TokenService) GetTokenExpiration(token string) time.Time {
	claims, err := parseUnverified(token)
	if err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// InspectUnverified extracts expiry and user id in a single unverified parse.
// The user id comes from a UserId or name-identifier claim, falling back to sub.
func (s *TokenService) InspectUnverified(token string) (*models.UnverifiedClaims, error) {
	claims, err := parseUnverified(token)
	if err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return nil, errors.New("token has no expiry")
	}

	id := userIDClaim(claims)
	if id == nil {
		id = int64Claim(claims["sub"])
	}
	return &models.UnverifiedClaims{UserID: id, ExpiresAt: exp.Time}, nil
}

// GenerateRefreshToken returns 64 random bytes encoded as URL-safe base64.
func (s *TokenService) GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

func parseUnverified(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func userIDClaim(claims jwt.MapClaims) *int64 {
	if id := int64Claim(claims[claimUserID]); id != nil {
		return id
	}
	return int64Claim(claims[claimNameIdentifier])
}

func int64Claim(value interface{}) *int64 {
	var (
		id  int64
		err error
	)
	switch v := value.(type) {
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float64:
		if v != float64(int64(v)) {
			return nil
		}
		id = int64(v)
	case json.Number:
		id, err = v.Int64()
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &id
}
