package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/elsoprime/erpsolutions/internal/audit"
	jobmetrics "github.com/elsoprime/erpsolutions/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event) error
}

// AuditStoreJob writes queued audit events to the database.
type AuditStoreJob struct {
	Store   AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditStoreJob initialises the audit persistence handler.
func NewAuditStoreJob(store AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditStoreJob {
	return &AuditStoreJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle stores the event carried by t. Malformed payloads are not retried.
func (j *AuditStoreJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("audit store: handler not configured")
	}
	var event audit.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		j.logger().Warn("drop malformed audit payload", slog.Any("error", err))
		return fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := event.Validate(); err != nil {
		j.logger().Warn("drop invalid audit event", slog.String("event_id", event.ID), slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskAuthzAudit)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Store.Record(ctx, event); err != nil {
		j.logger().Error("store audit event", slog.String("event_id", event.ID), slog.Any("error", err))
		return err
	}
	j.metrics().AddAuditEvent(event.Kind)
	return nil
}

func (j *AuditStoreJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuthzAudit))
	}
	return slog.Default().With(slog.String("job", TaskAuthzAudit))
}

func (j *AuditStoreJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
