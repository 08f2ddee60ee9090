package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/pkg/jobs"
	"github.com/noah-isme/medichat-api/pkg/middleware/requestid"
)

const sessionJobType = "session.upsert"

type sessionStore interface {
	UpsertActivity(ctx context.Context, record models.ActivityRecord) error
	ListActive(ctx context.Context) ([]models.ActivityRecord, error)
}

// SessionConfig tunes background activity writes.
type SessionConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// SessionService records caller activity off the request path. Writes are
// best-effort: errors are logged and counted, never returned.
type SessionService struct {
	store   sessionStore
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService
	timeout time.Duration
}

// NewSessionService builds the service and its worker queue. Call Start
// before recording and Stop on shutdown.
func NewSessionService(store sessionStore, cfg SessionConfig, logger *zap.Logger, metrics *MetricsService) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	svc := &SessionService{store: store, logger: logger, metrics: metrics, timeout: cfg.WriteTimeout}
	svc.queue = jobs.NewQueue("sessions", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: 0,
		Logger:     logger,
	})
	return svc
}

// Start launches the write workers.
func (s *SessionService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains nothing: pending writes are discarded.
func (s *SessionService) Stop() {
	s.queue.Stop()
}

// Record queues an activity upsert. It never blocks on the store.
func (s *SessionService) Record(ctx context.Context, activity models.ActivityRecord) {
	if err := s.queue.TryEnqueue(jobs.Job{ID: activity.Key, Type: sessionJobType, Payload: activity}); err != nil {
		s.metrics.RecordSessionWrite("dropped")
		s.logger.Debug("session write dropped",
			zap.String("key", activity.Key),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
	}
}

// ListActive returns recently active callers, newest first.
func (s *SessionService) ListActive(ctx context.Context) ([]models.ActivityRecord, error) {
	records, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return records, nil
}

func (s *SessionService) handle(ctx context.Context, job jobs.Job) error {
	activity, ok := job.Payload.(models.ActivityRecord)
	if !ok {
		return fmt.Errorf("unexpected session payload %T", job.Payload)
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.UpsertActivity(writeCtx, activity); err != nil {
		s.metrics.RecordSessionWrite("error")
		return err
	}
	s.metrics.RecordSessionWrite("ok")
	return nil
}
