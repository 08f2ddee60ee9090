package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/medichat-api/internal/models"
)

func newRBACRouter(claims *models.AccessClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	router.GET("/users/:id", guard, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return router
}

func TestRBAC(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.AccessClaims
		guard  gin.HandlerFunc
		path   string
		status int
	}{
		{"no claims", nil, RequireRoles(models.RoleAdmin), "/users/1", http.StatusUnauthorized},
		{"admin allowed", claimsFor("1", models.RoleAdmin), RequireRoles(models.RoleAdmin, models.RoleSupervisor), "/users/9", http.StatusNoContent},
		{"user forbidden", claimsFor("2", models.RoleUser), RequireRoles(models.RoleAdmin), "/users/9", http.StatusForbidden},
		{"self allowed", claimsFor("9", models.RoleUser), RBAC(string(models.RoleAdmin), "SELF"), "/users/9", http.StatusNoContent},
		{"other forbidden", claimsFor("8", models.RoleUser), RBAC(string(models.RoleAdmin), "SELF"), "/users/9", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRBACRouter(tc.claims, tc.guard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
