// Package plans reads company subscription plans from PostgreSQL.
package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elsoprime/erpsolutions/internal/rbac"
)

// querier is the subset of pgxpool.Pool the repository needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements rbac.PlanSource over the companies and plans tables.
type Repository struct {
	db querier
}

var _ rbac.PlanSource = (*Repository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Plan features win over the company's embedded settings; only active plans count.
const featuresQuery = `SELECT p.features, c.settings -> 'features'
FROM companies c
LEFT JOIN plans p ON p.id = c.plan_id AND p.status = 'active'
WHERE c.id = $1`

const planInfoQuery = `SELECT p.name, p.type
FROM companies c
JOIN plans p ON p.id = c.plan_id AND p.status = 'active'
WHERE c.id = $1`

// CompanyPlanFeatures returns the feature flags of the company's active plan,
// falling back to the features embedded in the company settings.
func (r *Repository) CompanyPlanFeatures(ctx context.Context, companyID string) (rbac.FeatureSet, error) {
	var planFeatures, companyFeatures []byte
	err := r.db.QueryRow(ctx, featuresQuery, companyID).Scan(&planFeatures, &companyFeatures)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("company plan features", err)
	}
	raw := planFeatures
	if isNullJSON(raw) {
		raw = companyFeatures
	}
	if isNullJSON(raw) {
		return nil, nil
	}
	return decodeFeatures(raw)
}

// CompanyPlanInfo returns the name and type of the company's active plan.
func (r *Repository) CompanyPlanInfo(ctx context.Context, companyID string) (*rbac.PlanInfo, error) {
	var info rbac.PlanInfo
	err := r.db.QueryRow(ctx, planInfoQuery, companyID).Scan(&info.Name, &info.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("company plan info", err)
	}
	return &info, nil
}

func decodeFeatures(raw []byte) (rbac.FeatureSet, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("plans: decode features: %w", err)
	}
	features, err := rbac.DecodeFeatureSet(doc)
	if err != nil {
		return nil, fmt.Errorf("plans: decode features: %w", err)
	}
	return features, nil
}

func isNullJSON(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
