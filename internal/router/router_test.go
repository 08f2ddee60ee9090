package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medichat-api/internal/handler"
	"github.com/noah-isme/medichat-api/internal/middleware"
	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/internal/service"
	"github.com/noah-isme/medichat-api/pkg/config"
)

type captureRecorder struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func (r *captureRecorder) Record(_ context.Context, activity models.ActivityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, activity)
}

func jwtConfig(key string) config.JWTConfig {
	return config.JWTConfig{
		Key:               key,
		Issuer:            "medichat",
		Audience:          "medichat-clients",
		ExpirationMinutes: 60,
	}
}

func newTestEngine() *gin.Engine {
	return newTrackingEngine(nil)
}

func newTrackingEngine(sessions middleware.SessionRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(jwtConfig("0123456789abcdef0123456789abcdef"), nil)
	return New(Dependencies{
		APIPrefix: "/api/v1",
		Tokens:    tokens,
		Sessions:  sessions,
		Auth:      handler.NewAuthHandler(nil, nil),
		Users:     handler.NewUserHandler(nil),
		Medicines: handler.NewMedicineHandler(nil),
		Activity:  handler.NewSessionHandler(nil, nil),
		Health:    handler.NewMetricsHandler(nil, nil),
	})
}

func TestRouterOpenRoutesSkipGate(t *testing.T) {
	engine := newTestEngine()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token/validate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterProtectedRoutesRequireToken(t *testing.T) {
	engine := newTestEngine()

	for _, path := range []string{"/api/v1/users/me", "/api/v1/medicines", "/api/v1/admin/sessions"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"statusMessage":"UnAuthorized"`, path)
	}
}

func TestRouterTracksRejectedRequests(t *testing.T) {
	recorder := &captureRecorder{}
	engine := newTrackingEngine(recorder)

	foreign := service.NewTokenService(jwtConfig("fedcba9876543210fedcba9876543210"), nil)
	token, err := foreign.GenerateAccessToken(&models.User{ID: 42, Name: "Dana"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/medicines", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "medichat-ios/2.1")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, "user-42", recorder.records[0].Key)
	require.NotNil(t, recorder.records[0].UserID)
	assert.Equal(t, int64(42), *recorder.records[0].UserID)
}

func TestRouterSkipsTrackingWithoutToken(t *testing.T) {
	recorder := &captureRecorder{}
	engine := newTrackingEngine(recorder)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/medicines", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, recorder.records)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/api/v1/auth/refresh", joinPath("/api/v1/auth", "/refresh"))
	assert.Equal(t, "/api/v1/users", joinPath("/api/v1/users", ""))
	assert.Equal(t, "/health", joinPath("/", "/health"))
}
