package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes events into audit_logs.
type Store struct {
	db execer
}

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

const insertEventQuery = `INSERT INTO audit_logs
	(id, action, actor_id, company_id, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

// Record persists the event. Replays of the same event ID are ignored.
func (s *Store) Record(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	_, err = s.db.Exec(ctx, insertEventQuery,
		e.ID, e.Kind, e.ActorID, e.CompanyID, e.Entity, e.EntityID, meta, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}
