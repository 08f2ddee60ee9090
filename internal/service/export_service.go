package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
	"github.com/noah-isme/medichat-api/pkg/export"
)

// ExportFormat names a rendered report format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type activityLister interface {
	ListActive(ctx context.Context) ([]models.ActivityRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered report ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the active-session report.
type ExportService struct {
	sessions activityLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sessions activityLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{sessions: sessions, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat validates a user-supplied format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", raw))
	}
}

// ActiveSessions renders currently active callers in the requested format.
func (s *ExportService) ActiveSessions(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	records, err := s.sessions.ListActive(ctx)
	if err != nil {
		return nil, appErrors.InternalMessage(err, "failed to load sessions")
	}

	dataset := sessionDataset(records)
	generated := s.now().UTC()
	filename := fmt.Sprintf("active_sessions_%s.%s", generated.Format("20060102_150405"), format)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset, "Active Sessions "+generated.Format("2006-01-02 15:04"))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		s.logger.Error("failed to render session report", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.InternalMessage(err, "failed to render report")
	}

	return &ExportFile{Filename: filename, ContentType: contentType, Body: body}, nil
}

var sessionHeaders = []string{"Session", "User ID", "IP", "User Agent", "Last Seen"}

func sessionDataset(records []models.ActivityRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		userID := "anonymous"
		if record.UserID != nil {
			userID = strconv.FormatInt(*record.UserID, 10)
		}
		rows = append(rows, map[string]string{
			"Session":    record.Key,
			"User ID":    userID,
			"IP":         record.IP,
			"User Agent": record.UserAgent,
			"Last Seen":  formatReportTime(record.LastSeen),
		})
	}
	return export.Dataset{Headers: sessionHeaders, Rows: rows}
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
