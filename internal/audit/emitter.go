package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/elsoprime/erpsolutions/internal/rbac"
	"github.com/elsoprime/erpsolutions/internal/shared"
)

// Enqueuer hands events to asynchronous persistence.
type Enqueuer interface {
	EnqueueAudit(ctx context.Context, e Event) error
}

// Emitter turns rbac decision points into audit events. Every event is
// logged; when a queue is configured it is also enqueued for storage.
// Emission never fails the decision it describes.
type Emitter struct {
	logger *slog.Logger
	queue  Enqueuer
	clock  func() time.Time
}

// NewEmitter constructs an Emitter. queue may be nil.
func NewEmitter(logger *slog.Logger, queue Enqueuer) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		logger: logger.WithGroup("audit"),
		queue:  queue,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AssignmentDenied records a refused role assignment.
func (e *Emitter) AssignmentDenied(ctx context.Context, d rbac.Denial) {
	event := e.newEvent(ctx, KindAssignmentDenied, d.CompanyID)
	event.Entity = "role_assignment"
	event.EntityID = string(d.AttemptedRole)
	event.Meta = map[string]any{
		"reason":        d.Reason,
		"currentRole":   string(d.CurrentRole),
		"attemptedRole": string(d.AttemptedRole),
		"roleType":      string(d.RoleType),
	}
	e.emit(ctx, event)
}

// ResolutionDegraded records a resolution served without plan data.
func (e *Emitter) ResolutionDegraded(ctx context.Context, d rbac.Degradation) {
	event := e.newEvent(ctx, KindResolutionDegraded, d.CompanyID)
	event.Entity = "company_plan"
	event.EntityID = d.CompanyID
	event.Meta = map[string]any{"role": string(d.Role)}
	if d.Cause != nil {
		event.Meta["cause"] = d.Cause.Error()
	}
	e.emit(ctx, event)
}

func (e *Emitter) newEvent(ctx context.Context, kind, companyID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActorID:    shared.UserIDFromContext(ctx),
		CompanyID:  companyID,
		OccurredAt: e.clock(),
	}
}

func (e *Emitter) emit(ctx context.Context, event Event) {
	e.logger.Warn(event.Kind,
		slog.String("event_id", event.ID),
		slog.String("actor_id", event.ActorID),
		slog.String("company_id", event.CompanyID),
		slog.String("entity_id", event.EntityID),
		slog.Any("meta", event.Meta),
	)
	if e.queue == nil {
		return
	}
	if err := e.queue.EnqueueAudit(ctx, event); err != nil {
		e.logger.Error("enqueue audit event", slog.String("event_id", event.ID), slog.Any("error", err))
	}
}
