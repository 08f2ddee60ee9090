package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

func TestExportActiveSessionsCSV(t *testing.T) {
	id := int64(42)
	seen := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store := &recordingSessionStore{records: []models.ActivityRecord{
		{Key: "user-42", UserID: &id, IP: "10.0.0.1", UserAgent: "curl/8", LastSeen: seen},
		{Key: "f00d", IP: "10.0.0.2", UserAgent: "Mozilla"},
	}}
	svc := NewExportService(store, nil, nil, nil)
	svc.now = func() time.Time { return seen }

	file, err := svc.ActiveSessions(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "active_sessions_20260301_080000.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Session,User ID,IP,User Agent,Last Seen", lines[0])
	assert.Equal(t, "user-42,42,10.0.0.1,curl/8,2026-03-01T08:00:00Z", lines[1])
	assert.Equal(t, "f00d,anonymous,10.0.0.2,Mozilla,", lines[2])
}

func TestExportActiveSessionsPDF(t *testing.T) {
	svc := NewExportService(&recordingSessionStore{records: []models.ActivityRecord{{Key: "user-1"}}}, nil, nil, nil)

	file, err := svc.ActiveSessions(context.Background(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportActiveSessionsErrors(t *testing.T) {
	svc := NewExportService(&recordingSessionStore{err: errors.New("redis down")}, nil, nil, nil)
	_, err := svc.ActiveSessions(context.Background(), ExportFormatCSV)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, err = NewExportService(&recordingSessionStore{}, nil, nil, nil).ActiveSessions(context.Background(), "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("docx")
	assert.Error(t, err)
}
