package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_started"
	cacheHitKey      = "cache_hit"
)

// WithResponseMeta starts per-request metadata collection. Handlers attach
// values with SetCacheHit and read the map back with ExtractMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata for the response being written, stamped
// with the request id and elapsed time. It returns nil when nothing was set.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	typed, ok := meta.(map[string]interface{})
	if !ok || len(typed) == 0 {
		return nil
	}
	if id := requestid.Value(c); id != "" {
		typed["request_id"] = id
	}
	if start, ok := c.Get(responseStartKey); ok {
		if t, ok := start.(time.Time); ok {
			typed["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return typed
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
