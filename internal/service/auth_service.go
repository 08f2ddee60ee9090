package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/pkg/config"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
}

type refreshTokenRepository interface {
	GetRefreshTokensByUserID(ctx context.Context, userID int64) ([]models.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) (int64, error)
	UpdateRefreshToken(ctx context.Context, token *models.RefreshToken) (bool, error)
	RotateRefreshToken(ctx context.Context, oldID int64, revokedAt time.Time, next *models.RefreshToken) (bool, error)
}

type otpVerifier interface {
	Verify(ctx context.Context, mobile, code string) error
}

// Authentication flows reported to metrics.
const (
	flowAuthenticate = "authenticate"
	flowAdmin        = "admin"
	flowOTP          = "otp"
	flowRefresh      = "refresh"
)

// AuthService issues token pairs for users whose identity has already been
// established by an OTP or password check.
type AuthService struct {
	users     authUserRepository
	refresh   refreshTokenRepository
	tokens    *TokenService
	otp       otpVerifier
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       config.JWTConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, refresh refreshTokenRepository, tokens *TokenService, otp otpVerifier, validate *validator.Validate, logger *zap.Logger, cfg config.JWTConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.RefreshExpirationDays <= 0 {
		cfg.RefreshExpirationDays = 7
	}
	return &AuthService{
		users:     users,
		refresh:   refresh,
		tokens:    tokens,
		otp:       otp,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithMetrics attaches the metrics collector used for auth outcome counters.
func (s *AuthService) WithMetrics(metrics *MetricsService) *AuthService {
	s.metrics = metrics
	return s
}

// Authenticate issues a fresh access token for userID and pairs it with the
// user's active refresh token, minting one when none is active.
//
// Two concurrent first logins for the same user can both see no active token
// and each persist one. Both tokens stay valid until they expire.
func (s *AuthService) Authenticate(ctx context.Context, userID int64) (*models.AuthenticationResult, error) {
	result, err := s.authenticate(ctx, userID)
	s.recordOutcome(flowAuthenticate, result, err)
	return result, err
}

func (s *AuthService) authenticate(ctx context.Context, userID int64) (*models.AuthenticationResult, error) {
	if userID <= 0 {
		return models.FailedAuthentication(appErrors.ErrMissingCredentials.Message), nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FailedAuthentication(appErrors.ErrInvalidCredentials.Message), nil
		}
		return nil, appErrors.Internal(err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	existing, err := s.refresh.GetRefreshTokensByUserID(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	now := s.now().UTC()
	current := activeToken(existing, now)
	if current == nil {
		current, err = s.mintRefreshToken(ctx, user.ID, accessToken, now)
		if err != nil {
			return nil, err
		}
	}

	// The reuse branch writes back the row it just read so jwt_token always
	// holds the latest access token.
	current.JwtToken = accessToken
	updated, err := s.refresh.UpdateRefreshToken(ctx, current)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if !updated {
		s.logger.Warn("refresh token row not updated", zap.Int64("user_id", user.ID), zap.Int64("token_id", current.ID))
	}

	result := &models.AuthenticationResult{
		IsSuccess:              true,
		Name:                   user.Name,
		AccessToken:            accessToken,
		RefreshToken:           current.Token,
		RefreshTokenExpiration: current.ExpiresAt,
	}
	if user.Email != nil {
		result.Email = *user.Email
	}
	return result, nil
}

// AdminLogin verifies an admin console password and authenticates the user.
func (s *AuthService) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthenticationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordOutcome(flowAdmin, models.FailedAuthentication(""), nil)
			return models.FailedAuthentication(appErrors.ErrInvalidCredentials.Message), nil
		}
		return nil, appErrors.Internal(err)
	}

	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		s.recordOutcome(flowAdmin, models.FailedAuthentication(""), nil)
		return models.FailedAuthentication(appErrors.ErrInvalidCredentials.Message), nil
	}

	switch user.EffectiveRole() {
	case models.RoleAdmin, models.RoleSupervisor:
	default:
		s.logger.Warn("admin login attempted by non-admin", zap.Int64("user_id", user.ID))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin access required")
	}

	result, err := s.Authenticate(ctx, user.ID)
	s.recordOutcome(flowAdmin, result, err)
	return result, err
}

// VerifyOTPLogin exchanges a one-time code for a token pair.
func (s *AuthService) VerifyOTPLogin(ctx context.Context, req models.OTPVerifyRequest) (*models.AuthenticationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	if s.otp == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "one-time codes are not configured")
	}
	if err := s.otp.Verify(ctx, req.Mobile, req.Code); err != nil {
		s.recordOutcome(flowOTP, nil, err)
		return nil, err
	}

	user, err := s.users.FindByMobile(ctx, req.Mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordOutcome(flowOTP, models.FailedAuthentication(""), nil)
			return models.FailedAuthentication(appErrors.ErrInvalidCredentials.Message), nil
		}
		return nil, appErrors.Internal(err)
	}

	result, err := s.Authenticate(ctx, user.ID)
	s.recordOutcome(flowOTP, result, err)
	return result, err
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. The expired access token only has to name the same user.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*models.RefreshedCredentials, error) {
	creds, err := s.rotate(ctx, accessToken, refreshToken)
	if err != nil {
		s.recordOutcome(flowRefresh, nil, err)
		return nil, err
	}
	s.recordOutcome(flowRefresh, &models.AuthenticationResult{IsSuccess: true}, nil)
	return creds, nil
}

func (s *AuthService) rotate(ctx context.Context, accessToken, refreshToken string) (*models.RefreshedCredentials, error) {
	if refreshToken == "" {
		return nil, appErrors.ErrUnauthorized
	}

	stored, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTokenNotActive
		}
		return nil, appErrors.Internal(err)
	}

	now := s.now().UTC()
	if !stored.IsActive(now) {
		return nil, appErrors.ErrTokenNotActive
	}

	claimed := s.tokens.GetUserIDFromToken(accessToken)
	if claimed == nil || *claimed != stored.UserID {
		return nil, appErrors.ErrTokenUserMismatch
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTokenUserMismatch
		}
		return nil, appErrors.Internal(err)
	}

	newAccess, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	next, err := s.newRefreshToken(user.ID, newAccess, now)
	if err != nil {
		return nil, err
	}
	// Revoke and insert commit together; a token already revoked by a
	// concurrent refresh rotates nothing.
	rotated, err := s.refresh.RotateRefreshToken(ctx, stored.ID, now, next)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if !rotated {
		return nil, appErrors.ErrTokenNotActive
	}

	return &models.RefreshedCredentials{
		UserID:                 user.ID,
		AccessToken:            newAccess,
		RefreshToken:           next.Token,
		RefreshTokenExpiration: next.ExpiresAt,
	}, nil
}

// SilentRefresh adapts Refresh to the authorization gate.
func (s *AuthService) SilentRefresh(ctx context.Context, accessToken, refreshToken string) RefreshOutcome {
	creds, err := s.Refresh(ctx, accessToken, refreshToken)
	if err == nil {
		return RefreshOutcome{Status: RefreshSucceeded, Credentials: creds}
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrTokenNotActive.Code:
			return RefreshOutcome{Status: RefreshTokenNotActive, Reason: appErr.Message}
		case appErrors.ErrTokenUserMismatch.Code:
			return RefreshOutcome{Status: RefreshTokenUserMismatch, Reason: appErr.Message}
		case appErrors.ErrInternal.Code:
			s.logger.Error("silent refresh failed", zap.Error(err))
		}
	}
	return RefreshOutcome{Status: RefreshNotAuthenticated}
}

// Logout revokes a refresh token owned by userID. Revoking an already
// revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	stored, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "refresh token not found")
		}
		return appErrors.Internal(err)
	}
	if stored.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if stored.IsRevoked() {
		return nil
	}

	now := s.now().UTC()
	stored.RevokedAt = &now
	if _, err := s.refresh.UpdateRefreshToken(ctx, stored); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("refresh token revoked", zap.Int64("user_id", userID), zap.Int64("token_id", stored.ID))
	return nil
}

// InspectToken reports what the codec can tell about token.
func (s *AuthService) InspectToken(token string) models.TokenValidationResponse {
	return models.TokenValidationResponse{
		Valid:     s.tokens.ValidateAccessToken(token),
		UserID:    s.tokens.GetUserIDFromToken(token),
		ExpiresAt: s.tokens.GetTokenExpiration(token),
	}
}

func (s *AuthService) newRefreshToken(userID int64, accessToken string, now time.Time) (*models.RefreshToken, error) {
	value, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return &models.RefreshToken{
		UserID:    userID,
		Token:     value,
		JwtToken:  accessToken,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL()),
	}, nil
}

func (s *AuthService) mintRefreshToken(ctx context.Context, userID int64, accessToken string, now time.Time) (*models.RefreshToken, error) {
	token, err := s.newRefreshToken(userID, accessToken, now)
	if err != nil {
		return nil, err
	}
	id, err := s.refresh.SaveRefreshToken(ctx, token)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	token.ID = id
	return token, nil
}

func (s *AuthService) recordOutcome(flow string, result *models.AuthenticationResult, err error) {
	switch {
	case err != nil && appErrors.FromError(err).Status >= 500:
		s.metrics.RecordAuthentication(flow, "error")
	case err != nil:
		s.metrics.RecordAuthentication(flow, "failure")
	case result != nil && result.IsSuccess:
		s.metrics.RecordAuthentication(flow, "success")
	default:
		s.metrics.RecordAuthentication(flow, "failure")
	}
}

func activeToken(tokens []models.RefreshToken, now time.Time) *models.RefreshToken {
	for i := range tokens {
		if tokens[i].IsActive(now) {
			token := tokens[i]
			return &token
		}
	}
	return nil
}
