package rbac

import (
	"context"
	"fmt"
	"strings"
)

// AssignmentRequest is a role grant an assigner wants to perform. Zero
// fields are treated as missing.
type AssignmentRequest struct {
	Role      Role
	RoleType  RoleType
	CompanyID string
}

// ParseAssignmentRequest converts transport values into an AssignmentRequest.
// Empty values are left for the authorizer to report; unknown values are
// rejected here.
func ParseAssignmentRequest(role, roleType, companyID string) (AssignmentRequest, error) {
	req := AssignmentRequest{CompanyID: strings.TrimSpace(companyID)}
	verr := &ValidationError{Fields: map[string]string{}}
	if strings.TrimSpace(role) != "" {
		parsed, err := ParseRole(role)
		if err != nil {
			verr.Fields["role"] = err.Error()
		}
		req.Role = parsed
	}
	if strings.TrimSpace(roleType) != "" {
		parsed, err := ParseRoleType(roleType)
		if err != nil {
			verr.Fields["roleType"] = err.Error()
		}
		req.RoleType = parsed
	}
	if len(verr.Fields) > 0 {
		return AssignmentRequest{}, verr
	}
	return req, nil
}

func (req AssignmentRequest) validate() error {
	verr := &ValidationError{Fields: map[string]string{}}
	if req.Role == "" {
		verr.Fields["role"] = "is required"
	}
	if req.RoleType == "" {
		verr.Fields["roleType"] = "is required"
	}
	if req.RoleType == RoleTypeCompany && req.CompanyID == "" {
		verr.Fields["companyId"] = "is required for company roles"
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return Membership{Role: req.Role, RoleType: req.RoleType, CompanyID: req.CompanyID, IsActive: true}.Validate()
}

// Decision is the outcome of an assignment check.
type Decision struct {
	Allowed               bool   `json:"allowed"`
	Reason                string `json:"reason,omitempty"`
	AssignerEffectiveRole Role   `json:"assignerEffectiveRole,omitempty"`
	AttemptedRole         Role   `json:"attemptedRole,omitempty"`
	CompanyID             string `json:"companyId,omitempty"`
}

// Err returns a *DeniedError for denied decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{
		Reason:        d.Reason,
		CurrentRole:   d.AssignerEffectiveRole,
		AttemptedRole: d.AttemptedRole,
		CompanyID:     d.CompanyID,
	}
}

// Authorizer decides whether an assigner may grant a role.
type Authorizer struct {
	opts options
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(opts ...Option) *Authorizer {
	return &Authorizer{opts: buildOptions(opts)}
}

// Authorize evaluates req against the assigner's memberships. Missing or
// inconsistent request fields yield a *ValidationError; every other outcome
// is a Decision.
func (a *Authorizer) Authorize(ctx context.Context, assigner []Membership, req AssignmentRequest) (Decision, error) {
	if HasActiveSuperAdmin(assigner) {
		a.opts.recorder.ObserveAssignment(OutcomeBypassed)
		return Decision{
			Allowed:               true,
			AssignerEffectiveRole: RoleSuperAdmin,
			AttemptedRole:         req.Role,
			CompanyID:             req.CompanyID,
		}, nil
	}

	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if err := req.validate(); err != nil {
		a.opts.recorder.ObserveAssignment(OutcomeInvalid)
		return Decision{}, err
	}

	if req.RoleType == RoleTypeGlobal {
		current, _ := highestActiveCompanyRole(assigner)
		return a.deny(ctx, req, current, fmt.Sprintf(
			"Solo un super_admin puede asignar el rol global %s", req.Role)), nil
	}

	membership, ok := activeMembershipIn(assigner, req.CompanyID)
	if !ok {
		return a.deny(ctx, req, "", fmt.Sprintf(
			"No tienes una membresía activa en la empresa %s, no puedes asignar el rol %s", req.CompanyID, req.Role)), nil
	}

	if !CanAssign(Rank(membership.Role, membership.RoleType), Rank(req.Role, req.RoleType)) {
		return a.deny(ctx, req, membership.Role, fmt.Sprintf(
			"Tu rol actual (%s) no permite asignar el rol %s en la empresa %s: solo puedes asignar roles de menor jerarquía",
			membership.Role, req.Role, req.CompanyID)), nil
	}

	a.opts.recorder.ObserveAssignment(OutcomeAllowed)
	return Decision{
		Allowed:               true,
		AssignerEffectiveRole: membership.Role,
		AttemptedRole:         req.Role,
		CompanyID:             req.CompanyID,
	}, nil
}

func (a *Authorizer) deny(ctx context.Context, req AssignmentRequest, current Role, reason string) Decision {
	a.opts.auditor.AssignmentDenied(ctx, Denial{
		Reason:        reason,
		CurrentRole:   current,
		AttemptedRole: req.Role,
		RoleType:      req.RoleType,
		CompanyID:     req.CompanyID,
	})
	a.opts.recorder.ObserveAssignment(OutcomeDenied)
	return Decision{
		Allowed:               false,
		Reason:                reason,
		AssignerEffectiveRole: current,
		AttemptedRole:         req.Role,
		CompanyID:             req.CompanyID,
	}
}

// HasActiveSuperAdmin reports whether any membership grants the global bypass.
func HasActiveSuperAdmin(memberships []Membership) bool {
	for _, m := range memberships {
		if m.IsActiveSuperAdmin() {
			return true
		}
	}
	return false
}

// VisibleMemberships returns the memberships in target that a viewer holding
// viewer may see: all of them for an active super_admin, otherwise only the
// company memberships of companies where the viewer is an active member.
func VisibleMemberships(viewer, target []Membership) []Membership {
	out := make([]Membership, 0, len(target))
	if HasActiveSuperAdmin(viewer) {
		return append(out, target...)
	}
	for _, m := range target {
		if m.RoleType != RoleTypeCompany {
			continue
		}
		if _, ok := activeMembershipIn(viewer, m.CompanyID); ok {
			out = append(out, m)
		}
	}
	return out
}

// activeMembershipIn returns the highest-ranked active company membership the
// assigner holds in companyID.
func activeMembershipIn(memberships []Membership, companyID string) (Membership, bool) {
	var (
		best  Membership
		found bool
	)
	for _, m := range memberships {
		if !m.IsActive || m.RoleType != RoleTypeCompany || m.CompanyID != companyID {
			continue
		}
		if !found || Rank(m.Role, m.RoleType) > Rank(best.Role, best.RoleType) {
			best, found = m, true
		}
	}
	return best, found
}

func highestActiveCompanyRole(memberships []Membership) (Role, bool) {
	var (
		best  Role
		found bool
	)
	for _, m := range memberships {
		if !m.IsActive || m.RoleType != RoleTypeCompany {
			continue
		}
		if !found || Rank(m.Role, m.RoleType) > RankOf(best) {
			best, found = m.Role, true
		}
	}
	return best, found
}
