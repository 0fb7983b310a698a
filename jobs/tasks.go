package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/elsoprime/erpsolutions/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit holds audit persistence tasks.
	QueueAudit = "audit"
	// TaskAuthzAudit persists one authorization audit event.
	TaskAuthzAudit = "authz:audit"
)

// NewAuditTask constructs an Asynq task carrying the event. The event ID is
// used as the task ID so a re-enqueued event is deduplicated.
func NewAuditTask(event audit.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzAudit, data, asynq.TaskID(event.ID), asynq.Queue(QueueAudit), asynq.MaxRetry(5)), nil
}
