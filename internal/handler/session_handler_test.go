package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/internal/service"
)

type fakeSessionSrv struct {
	records []models.ActivityRecord
	err     error
}

func (f *fakeSessionSrv) ListActive(context.Context) ([]models.ActivityRecord, error) {
	return f.records, f.err
}

type fakeExporter struct {
	format service.ExportFormat
}

func (f *fakeExporter) ActiveSessions(_ context.Context, format service.ExportFormat) (*service.ExportFile, error) {
	f.format = format
	return &service.ExportFile{Filename: "active_sessions.csv", ContentType: "text/csv", Body: []byte("Session\n")}, nil
}

func TestSessionHandlerList(t *testing.T) {
	id := int64(42)
	srv := &fakeSessionSrv{records: []models.ActivityRecord{{Key: "user-42", UserID: &id, LastSeen: time.Now()}}}
	handler := NewSessionHandler(srv, &fakeExporter{})

	c, rec := jsonContext(http.MethodGet, "/admin/sessions", nil)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), "user-42")

	srv.err = errors.New("redis down")
	c, rec = jsonContext(http.MethodGet, "/admin/sessions", nil)
	handler.List(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestSessionHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	handler := NewSessionHandler(&fakeSessionSrv{}, exporter)

	c, rec := jsonContext(http.MethodGet, "/admin/sessions/export?format=csv", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "active_sessions.csv")
	assert.Equal(t, "Session\n", rec.Body.String())

	c, rec = jsonContext(http.MethodGet, "/admin/sessions/export?format=xlsx", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
