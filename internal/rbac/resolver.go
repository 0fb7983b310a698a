package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Plan labels used when no formal plan document backs the features.
const (
	NoPlanName     = "Sin plan"
	NoPlanType     = "none"
	CustomPlanName = "Plan Personalizado"
	CustomPlanType = "custom"
)

const maxCompanyIDLength = 64

// PlanInfo identifies the subscription plan of a company.
type PlanInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PlanSource looks up plan data for a company. Both methods return a nil
// value and a nil error when the company has no such data. Failures caused
// by the store being unreachable must wrap ErrPlanStoreUnavailable.
type PlanSource interface {
	CompanyPlanFeatures(ctx context.Context, companyID string) (FeatureSet, error)
	CompanyPlanInfo(ctx context.Context, companyID string) (*PlanInfo, error)
}

// Result is the effective permission picture of a role within a company.
// It is built per call and never cached.
type Result struct {
	Permissions       PermissionSet
	AvailableModules  []FeatureKey
	RestrictedModules []FeatureKey
	Plan              PlanInfo
	Degraded          bool
}

// Resolver intersects role defaults with plan-enabled permissions.
type Resolver struct {
	plans PlanSource
	opts  options
}

// NewResolver constructs a Resolver over the given plan source.
func NewResolver(plans PlanSource, opts ...Option) *Resolver {
	return &Resolver{plans: plans, opts: buildOptions(opts)}
}

// Resolve computes the effective permissions of role inside companyID.
// Missing plan data degrades to the minimal safe result; only plan store
// outages are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, role Role, companyID string) (Result, error) {
	companyID = strings.TrimSpace(companyID)
	if err := validateTarget(role, companyID); err != nil {
		r.opts.recorder.ObserveResolution(OutcomeInvalid)
		return Result{}, err
	}

	lookup, err := r.fetchPlan(ctx, companyID)
	if err != nil {
		r.opts.recorder.ObserveResolution(OutcomeFailed)
		return Result{}, err
	}
	if lookup.features == nil {
		r.opts.auditor.ResolutionDegraded(ctx, Degradation{CompanyID: companyID, Role: role, Cause: lookup.cause})
		r.opts.recorder.ObserveResolution(OutcomeDegraded)
		return minimalResult(), nil
	}

	result := ResolveWithFeatures(role, lookup.features)
	if info := lookup.info; info != nil && strings.TrimSpace(info.Name) != "" {
		result.Plan = *info
		if result.Plan.Type == "" {
			result.Plan.Type = CustomPlanType
		}
	}
	r.opts.recorder.ObserveResolution(OutcomeResolved)
	return result, nil
}

// Modules returns the plan-derived module partition for a company. It does
// not depend on any role.
func (r *Resolver) Modules(ctx context.Context, companyID string) (available, restricted []FeatureKey, err error) {
	companyID = strings.TrimSpace(companyID)
	if err := validateCompanyID(companyID); err != nil {
		return nil, nil, err
	}
	lookup, err := r.fetchFeatures(ctx, companyID)
	if err != nil {
		r.opts.recorder.ObserveResolution(OutcomeFailed)
		return nil, nil, err
	}
	if lookup.features == nil {
		r.opts.auditor.ResolutionDegraded(ctx, Degradation{CompanyID: companyID, Cause: lookup.cause})
		r.opts.recorder.ObserveResolution(OutcomeDegraded)
		return []FeatureKey{}, []FeatureKey{}, nil
	}
	r.opts.recorder.ObserveResolution(OutcomeResolved)
	return ActiveModules(lookup.features), RestrictedModules(lookup.features), nil
}

// ModuleAvailable reports whether a company's plan enables module.
func (r *Resolver) ModuleAvailable(ctx context.Context, companyID string, module FeatureKey) (bool, error) {
	available, _, err := r.Modules(ctx, companyID)
	if err != nil {
		return false, err
	}
	for _, key := range available {
		if key == module {
			return true, nil
		}
	}
	return false, nil
}

// ResolveWithFeatures computes a result for an explicit feature set without
// any lookup. The plan is labelled as a custom plan.
func ResolveWithFeatures(role Role, features FeatureSet) Result {
	rolePerms := DefaultPermissionsFor(role)
	planPerms := PermissionsForFeatures(features)
	return Result{
		Permissions:       rolePerms.Intersect(planPerms),
		AvailableModules:  ActiveModules(features),
		RestrictedModules: RestrictedModules(features),
		Plan:              PlanInfo{Name: CustomPlanName, Type: CustomPlanType},
	}
}

func minimalResult() Result {
	return Result{
		Permissions:       minimalPermissions.Clone(),
		AvailableModules:  []FeatureKey{},
		RestrictedModules: []FeatureKey{},
		Plan:              PlanInfo{Name: NoPlanName, Type: NoPlanType},
		Degraded:          true,
	}
}

// planLookup carries plan data; cause is the soft failure, if any, that
// left features empty.
type planLookup struct {
	features FeatureSet
	info     *PlanInfo
	cause    error
}

// fetchPlan reads features and plan info concurrently. Soft lookup failures
// are read as "no data".
func (r *Resolver) fetchPlan(ctx context.Context, companyID string) (planLookup, error) {
	var (
		features FeatureSet
		info     *PlanInfo
		cause    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fs, err := r.plans.CompanyPlanFeatures(gctx, companyID)
		if err != nil {
			if isInfrastructure(err) {
				return fmt.Errorf("rbac: fetch plan features: %w", err)
			}
			cause = err
			return nil
		}
		features = fs
		return nil
	})
	g.Go(func() error {
		pi, err := r.plans.CompanyPlanInfo(gctx, companyID)
		if err != nil {
			if isInfrastructure(err) {
				return fmt.Errorf("rbac: fetch plan info: %w", err)
			}
			return nil
		}
		info = pi
		return nil
	})
	if err := g.Wait(); err != nil {
		return planLookup{}, err
	}
	return planLookup{features: features, info: info, cause: cause}, nil
}

func (r *Resolver) fetchFeatures(ctx context.Context, companyID string) (planLookup, error) {
	features, err := r.plans.CompanyPlanFeatures(ctx, companyID)
	if err != nil {
		if isInfrastructure(err) {
			return planLookup{}, fmt.Errorf("rbac: fetch plan features: %w", err)
		}
		return planLookup{cause: err}, nil
	}
	return planLookup{features: features}, nil
}

func isInfrastructure(err error) bool {
	return errors.Is(err, ErrPlanStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func validateTarget(role Role, companyID string) error {
	verr := &ValidationError{Fields: map[string]string{}}
	if role == "" {
		verr.Fields["role"] = "is required"
	} else if !role.IsCompanyRole() {
		verr.Fields["role"] = fmt.Sprintf("%q is not a company role", role)
	}
	if err := validateCompanyID(companyID); err != nil {
		var cerr *ValidationError
		if errors.As(err, &cerr) {
			for k, v := range cerr.Fields {
				verr.Fields[k] = v
			}
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func validateCompanyID(companyID string) error {
	switch {
	case companyID == "":
		return newValidationError("companyId", "is required")
	case len(companyID) > maxCompanyIDLength:
		return newValidationError("companyId", "is too long")
	case strings.ContainsAny(companyID, " /\\?#"):
		return newValidationError("companyId", "contains invalid characters")
	}
	return nil
}
