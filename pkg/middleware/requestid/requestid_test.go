package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		if FromContext(c.Request.Context()) != seen {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(Header, header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestGeneratesID(t *testing.T) {
	rec, seen := serve("")
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seen, rec.Header().Get(Header))
}

func TestKeepsCallerID(t *testing.T) {
	_, seen := serve("abc-123")
	assert.Equal(t, "abc-123", seen)
}

func TestReplacesOversizedID(t *testing.T) {
	_, seen := serve(strings.Repeat("x", maxLength+1))
	assert.Len(t, seen, 36)
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}
