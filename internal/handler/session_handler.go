package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/internal/service"
	"github.com/noah-isme/medichat-api/pkg/response"
)

type activeSessionLister interface {
	ListActive(ctx context.Context) ([]models.ActivityRecord, error)
}

type sessionExporter interface {
	ActiveSessions(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// SessionHandler exposes caller activity to administrators.
type SessionHandler struct {
	sessions activeSessionLister
	exporter sessionExporter
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions activeSessionLister, exporter sessionExporter) *SessionHandler {
	return &SessionHandler{sessions: sessions, exporter: exporter}
}

// List godoc
// @Summary List active sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	records, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Export godoc
// @Summary Export active sessions
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exporter.ActiveSessions(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
