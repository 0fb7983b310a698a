// Package audit records authorization decisions that need a trail.
package audit

import (
	"errors"
	"time"
)

// Event kinds.
const (
	KindAssignmentDenied   = "rbac.assignment_denied"
	KindResolutionDegraded = "rbac.resolution_degraded"
)

// Event is one audit record. Meta carries kind-specific details.
type Event struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	ActorID    string         `json:"actorId,omitempty"`
	CompanyID  string         `json:"companyId,omitempty"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Validate checks the fields every stored event needs.
func (e Event) Validate() error {
	if e.ID == "" || e.Kind == "" || e.Entity == "" || e.EntityID == "" {
		return errors.New("audit event requires id/kind/entity/entity_id")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("audit event requires occurred_at")
	}
	return nil
}
