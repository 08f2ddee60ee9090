package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
	"github.com/noah-isme/medichat-api/pkg/response"
)

type authService interface {
	AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthenticationResult, error)
	VerifyOTPLogin(ctx context.Context, req models.OTPVerifyRequest) (*models.AuthenticationResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*models.RefreshedCredentials, error)
	Logout(ctx context.Context, userID int64, refreshToken string) error
	InspectToken(token string) models.TokenValidationResponse
}

type otpRequester interface {
	Request(ctx context.Context, req models.OTPRequest) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	otp     otpRequester
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, otp otpRequester) *AuthHandler {
	return &AuthHandler{service: svc, otp: otp}
}

// AdminLogin godoc
// @Summary Admin console login
// @Description Authenticate an admin or supervisor by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	result, err := h.service.AdminLogin(c.Request.Context(), req)
	writeAuthentication(c, result, err)
}

// RequestOTP godoc
// @Summary Request a one-time login code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.OTPRequest true "Mobile number"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/otp/request [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req models.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.otp.Request(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "if the number is registered, a code will be sent"}, nil)
}

// VerifyOTP godoc
// @Summary Exchange a one-time code for tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.OTPVerifyRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.VerifyOTPLogin(c.Request.Context(), req)
	writeAuthentication(c, result, err)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange an expired access token and its refresh token for a new pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}

	creds, err := h.service.Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, creds, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LogoutRequest true "Refresh token"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh token required"))
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ValidateToken godoc
// @Summary Inspect an access token
// @Description Reports signature validity, subject and expiry of a token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.TokenValidationRequest true "Token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/token/validate [post]
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req models.TokenValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}

	response.JSON(c, http.StatusOK, h.service.InspectToken(req.Token), nil)
}

// writeAuthentication maps an unsuccessful result to 401 with the result as body.
func writeAuthentication(c *gin.Context, result *models.AuthenticationResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.IsSuccess {
		response.JSON(c, http.StatusUnauthorized, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
