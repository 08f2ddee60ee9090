package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/middleware"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

// currentUserID returns the subject of the verified access token.
func currentUserID(c *gin.Context) (int64, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return 0, appErrors.ErrUnauthorized
	}
	id, ok := claims.UserID()
	if !ok {
		return 0, appErrors.ErrUnauthorized
	}
	return id, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}
