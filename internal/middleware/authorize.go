package middleware

import (
	"context"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/internal/service"
	"github.com/noah-isme/medichat-api/pkg/logger"
	"github.com/noah-isme/medichat-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified access claims.
const ContextUserKey = "currentUser"

// HeaderRefreshToken carries the refresh token used for silent refresh.
const HeaderRefreshToken = response.HeaderRefreshToken

type tokenVerifier interface {
	VerifyAccessToken(token string) (*models.AccessClaims, bool)
}

// SilentRefresher exchanges an invalid access token plus refresh token for
// new credentials.
type SilentRefresher interface {
	SilentRefresh(ctx context.Context, accessToken, refreshToken string) service.RefreshOutcome
}

// Exemptions is the set of routes that bypass the authorization gate, keyed
// by method and registered path pattern.
type Exemptions struct {
	mu     sync.RWMutex
	routes map[string]struct{}
}

// NewExemptions returns an empty set.
func NewExemptions() *Exemptions {
	return &Exemptions{routes: make(map[string]struct{})}
}

// Add marks a route as exempt.
func (e *Exemptions) Add(method, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routes[method+" "+path] = struct{}{}
}

// IsExempt reports whether the route was marked exempt. Unmatched routes are
// never exempt.
func (e *Exemptions) IsExempt(method, path string) bool {
	if e == nil || path == "" {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.routes[method+" "+path]
	return ok
}

// AuthorizationGate rejects requests without a valid access token unless the
// route is exempt. Every request ends in either c.Next or a 401.
func AuthorizationGate(verifier tokenVerifier, refresher SilentRefresher, exemptions *Exemptions, metrics *service.MetricsService) gin.HandlerFunc {
	if refresher == nil {
		refresher = service.NoopRefresher{}
	}
	return func(c *gin.Context) {
		if exemptions.IsExempt(c.Request.Method, c.FullPath()) {
			metrics.RecordGateDecision("exempt")
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, metrics, "")
			return
		}

		if claims, valid := verifier.VerifyAccessToken(token); valid {
			allow(c, claims)
			metrics.RecordGateDecision("allowed")
			c.Next()
			return
		}

		outcome := refresher.SilentRefresh(c.Request.Context(), token, c.GetHeader(HeaderRefreshToken))
		switch outcome.Status {
		case service.RefreshSucceeded:
			claims, valid := verifier.VerifyAccessToken(outcome.Credentials.AccessToken)
			if !valid {
				reject(c, metrics, "")
				return
			}
			c.Request = c.Request.WithContext(models.ContextWithRefreshedCredentials(c.Request.Context(), outcome.Credentials))
			// Headers go out before any handler writes so every response
			// shape carries the rotated pair.
			response.SurfaceRefreshedCredentials(c)
			allow(c, claims)
			metrics.RecordGateDecision("refreshed")
			c.Next()
		case service.RefreshTokenNotActive, service.RefreshTokenUserMismatch:
			reject(c, metrics, outcome.Reason)
		default:
			reject(c, metrics, "")
		}
	}
}

// ClaimsFromContext returns the claims the gate attached to the request.
func ClaimsFromContext(c *gin.Context) (*models.AccessClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.AccessClaims)
	return claims, ok && claims != nil
}

func allow(c *gin.Context, claims *models.AccessClaims) {
	c.Set(ContextUserKey, claims)
	if id, ok := claims.UserID(); ok {
		logger.SetUserID(c, id)
	}
}

func reject(c *gin.Context, metrics *service.MetricsService, reason string) {
	metrics.RecordGateDecision("rejected")
	response.Unauthorized(c, reason)
}

// bearerToken splits the header on the first space. Headers without a
// scheme or with an empty token are rejected.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
