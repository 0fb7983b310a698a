package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elsoprime/erpsolutions/internal/platform/db"
	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/rbac"
)

const uniqueViolation = "23505"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides PostgreSQL backed membership persistence.
type Repository struct {
	db     querier
	tx     db.Beginner
	logger *slog.Logger
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	return newRepository(pool, pool, logger)
}

func newRepository(q querier, tx db.Beginner, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: q, tx: tx, logger: logger}
}

const membershipColumns = `id::text, role, role_type, COALESCE(company_id, ''), is_active`

const listMembershipsQuery = `SELECT ` + membershipColumns + `
FROM user_role_memberships
WHERE user_id = $1
ORDER BY created_at, id`

const getMembershipQuery = `SELECT ` + membershipColumns + `
FROM user_role_memberships
WHERE user_id = $1 AND id = $2`

const lockMembershipQuery = getMembershipQuery + `
FOR UPDATE`

const insertMembershipQuery = `INSERT INTO user_role_memberships
	(id, user_id, role, role_type, company_id, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW(), NOW())`

const updateMembershipQuery = `UPDATE user_role_memberships
SET role = $3, role_type = $4, company_id = NULLIF($5, ''), is_active = $6, updated_at = NOW()
WHERE user_id = $1 AND id = $2`

// ListMemberships returns every stored membership of the user, including
// inactive and malformed ones.
func (r *Repository) ListMemberships(ctx context.Context, userID string) ([]rbac.Membership, error) {
	rows, err := r.db.Query(ctx, listMembershipsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("users: list memberships: %w", err)
	}
	defer rows.Close()

	var out []rbac.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list memberships: %w", err)
	}
	return out, nil
}

// UserMemberships returns the memberships the authorizer may rely on. Rows
// that break the membership invariants are skipped with a warning.
func (r *Repository) UserMemberships(ctx context.Context, userID string) ([]rbac.Membership, error) {
	all, err := r.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	valid := make([]rbac.Membership, 0, len(all))
	for _, m := range all {
		if err := m.Validate(); err != nil {
			r.logger.Warn("skip invalid membership",
				slog.String("user_id", userID),
				slog.String("membership_id", m.ID),
				slog.Any("error", err))
			continue
		}
		valid = append(valid, m)
	}
	return valid, nil
}

// GetMembership loads one membership of the user.
func (r *Repository) GetMembership(ctx context.Context, userID, membershipID string) (rbac.Membership, error) {
	m, err := scanMembership(r.db.QueryRow(ctx, getMembershipQuery, userID, membershipID))
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.Membership{}, fmt.Errorf("membership %s: %w", membershipID, httpx.ErrNotFound)
	}
	if err != nil {
		return rbac.Membership{}, fmt.Errorf("users: get membership: %w", err)
	}
	return m, nil
}

// CreateMembership stores m under a fresh identifier.
func (r *Repository) CreateMembership(ctx context.Context, userID string, m rbac.Membership) (rbac.Membership, error) {
	m.ID = uuid.NewString()
	_, err := r.db.Exec(ctx, insertMembershipQuery,
		m.ID, userID, string(m.Role), string(m.RoleType), m.CompanyID, m.IsActive)
	if err != nil {
		return rbac.Membership{}, mapWriteError("create membership", err)
	}
	return m, nil
}

// UpdateMembership locks the stored row, applies fn to it and writes the
// result back in one transaction.
func (r *Repository) UpdateMembership(ctx context.Context, userID, membershipID string, fn func(rbac.Membership) (rbac.Membership, error)) (rbac.Membership, error) {
	var updated rbac.Membership
	err := db.WithTx(ctx, r.tx, func(tx pgx.Tx) error {
		current, err := scanMembership(tx.QueryRow(ctx, lockMembershipQuery, userID, membershipID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("membership %s: %w", membershipID, httpx.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("users: lock membership: %w", err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, updateMembershipQuery,
			userID, membershipID, string(next.Role), string(next.RoleType), next.CompanyID, next.IsActive)
		if err != nil {
			return mapWriteError("update membership", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return rbac.Membership{}, err
	}
	return updated, nil
}

func scanMembership(row pgx.Row) (rbac.Membership, error) {
	var (
		m                  rbac.Membership
		role, roleType, id string
	)
	if err := row.Scan(&id, &role, &roleType, &m.CompanyID, &m.IsActive); err != nil {
		return rbac.Membership{}, err
	}
	m.ID = id
	m.Role = rbac.Role(role)
	m.RoleType = rbac.RoleType(roleType)
	return m, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: membership already exists", httpx.ErrDuplicate)
	}
	return fmt.Errorf("users: %s: %w", op, err)
}
