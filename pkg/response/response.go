package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

// Headers used to hand silently refreshed tokens back to the client.
const (
	HeaderAccessToken  = "X-Access-Token"
	HeaderRefreshToken = "X-Refresh-Token"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// AuthFailure is the body written when a request is rejected by the
// authorization gate. Field names are part of the public contract.
type AuthFailure struct {
	StatusMessage string `json:"statusMessage"`
	UserID        int64  `json:"userId"`
	IsSuccess     bool   `json:"IsSuccess"`
	StatusCode    int    `json:"statusCode"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	SurfaceRefreshedCredentials(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	SurfaceRefreshedCredentials(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Unauthorized aborts the request with the gate's 401 body.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = appErrors.ErrUnauthorized.Message
	}
	noStore(c)
	c.AbortWithStatusJSON(http.StatusUnauthorized, AuthFailure{
		StatusMessage: message,
		UserID:        0,
		IsSuccess:     false,
		StatusCode:    http.StatusUnauthorized,
	})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	SurfaceRefreshedCredentials(c)
	c.Status(http.StatusNoContent)
}

// Attachment streams a rendered file to the client.
func Attachment(c *gin.Context, contentType, filename string, body []byte) {
	noStore(c)
	SurfaceRefreshedCredentials(c)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// SurfaceRefreshedCredentials copies silently refreshed tokens from the
// request context into the response headers. Setting them twice is harmless.
func SurfaceRefreshedCredentials(c *gin.Context) {
	if c.Request == nil {
		return
	}
	creds, ok := models.RefreshedCredentialsFromContext(c.Request.Context())
	if !ok {
		return
	}
	c.Header(HeaderAccessToken, creds.AccessToken)
	if creds.RefreshToken != "" {
		c.Header(HeaderRefreshToken, creds.RefreshToken)
	}
}
