package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
)

// SessionRecorder persists caller activity. Implementations must not block
// the request on the backing store.
type SessionRecorder interface {
	Record(ctx context.Context, activity models.ActivityRecord)
}

type tokenInspector interface {
	InspectUnverified(token string) (*models.UnverifiedClaims, error)
}

// SessionKey groups activity by user when known, otherwise by a hash of the
// caller's address and user agent.
func SessionKey(userID *int64, ip, userAgent string) string {
	if userID != nil {
		return fmt.Sprintf("user-%d", *userID)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("ip-%s-agent-%s", ip, userAgent)))
	return hex.EncodeToString(sum[:])
}

// SessionTracker records a last-seen marker for every request carrying an
// unexpired bearer token. The token signature is not checked here: a forged
// token can only skew activity data. Tracking never affects the response.
func SessionTracker(inspector tokenInspector, recorder SessionRecorder, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	return func(c *gin.Context) {
		track(c, inspector, recorder, log, now())
		c.Next()
	}
}

func track(c *gin.Context, inspector tokenInspector, recorder SessionRecorder, log *zap.Logger, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("session tracking panicked", zap.Any("panic", r))
		}
	}()

	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return
	}
	claims, err := inspector.InspectUnverified(token)
	if err != nil || !now.Before(claims.ExpiresAt) {
		return
	}

	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()
	recorder.Record(c.Request.Context(), models.ActivityRecord{
		Key:       SessionKey(claims.UserID, ip, userAgent),
		UserID:    claims.UserID,
		IP:        ip,
		UserAgent: userAgent,
		LastSeen:  now.UTC(),
	})
}
