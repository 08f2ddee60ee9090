package models

import "time"

// AuthenticationResult is the outcome of an authentication attempt.
type AuthenticationResult struct {
	IsSuccess              bool      `json:"isSuccess"`
	Name                   string    `json:"name,omitempty"`
	Email                  string    `json:"email,omitempty"`
	AccessToken            string    `json:"accessToken,omitempty"`
	RefreshToken           string    `json:"refreshToken,omitempty"`
	RefreshTokenExpiration time.Time `json:"refreshTokenExpiration,omitempty"`
	Message                string    `json:"message,omitempty"`
}

// FailedAuthentication builds a failure result with a human-readable reason.
func FailedAuthentication(message string) *AuthenticationResult {
	return &AuthenticationResult{IsSuccess: false, Message: message}
}

// OTPRequest asks for a one-time login code.
type OTPRequest struct {
	Mobile string `json:"mobile" validate:"required,e164"`
}

// OTPVerifyRequest exchanges a one-time code for tokens.
type OTPVerifyRequest struct {
	Mobile string `json:"mobile" validate:"required,e164"`
	Code   string `json:"code" validate:"required,numeric,min=4,max=8"`
}

// AdminLoginRequest holds credentials for the admin console.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges an expired access token plus refresh token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenValidationRequest is the payload of the token diagnostics endpoint.
type TokenValidationRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenValidationResponse reports what the codec knows about a token.
type TokenValidationResponse struct {
	Valid     bool      `json:"valid"`
	UserID    *int64    `json:"userId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Role      UserRole `json:"role"`
	IsPremium bool     `json:"isPremium"`
}
