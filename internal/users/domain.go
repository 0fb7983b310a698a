package users

import (
	"strings"

	"github.com/elsoprime/erpsolutions/internal/rbac"
)

// RoleGrant is a new membership requested for a user.
type RoleGrant struct {
	Role      string `json:"role" validate:"max=32"`
	RoleType  string `json:"roleType" validate:"max=16"`
	CompanyID string `json:"companyId,omitempty" validate:"max=64"`
}

// Assignment returns the authorization request the grant performs.
func (g RoleGrant) Assignment() (rbac.AssignmentRequest, error) {
	return rbac.ParseAssignmentRequest(g.Role, g.RoleType, g.CompanyID)
}

// RoleUpdate is a partial change to an existing membership. Nil fields are
// left untouched; an empty CompanyID clears the company.
type RoleUpdate struct {
	Role      *string `json:"role,omitempty" validate:"omitempty,max=32"`
	RoleType  *string `json:"roleType,omitempty" validate:"omitempty,max=16"`
	CompanyID *string `json:"companyId,omitempty" validate:"omitempty,max=64"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// TouchesRole reports whether the update changes what the membership grants.
// Moving a membership to another company counts as a role change.
func (u RoleUpdate) TouchesRole() bool {
	return u.Role != nil || u.RoleType != nil || u.CompanyID != nil
}

// Apply merges the update onto m. Unknown role values yield a
// *rbac.ValidationError; consistency is checked separately.
func (u RoleUpdate) Apply(m rbac.Membership) (rbac.Membership, error) {
	role, roleType, companyID := string(m.Role), string(m.RoleType), m.CompanyID
	if u.Role != nil {
		role = *u.Role
	}
	if u.RoleType != nil {
		roleType = *u.RoleType
	}
	if u.CompanyID != nil {
		companyID = strings.TrimSpace(*u.CompanyID)
	}
	req, err := rbac.ParseAssignmentRequest(role, roleType, companyID)
	if err != nil {
		return rbac.Membership{}, err
	}
	merged := rbac.Membership{
		ID:        m.ID,
		Role:      req.Role,
		RoleType:  req.RoleType,
		CompanyID: req.CompanyID,
		IsActive:  m.IsActive,
	}
	if u.IsActive != nil {
		merged.IsActive = *u.IsActive
	}
	return merged, nil
}

// AssignmentOf describes an existing membership as an assignment request.
func AssignmentOf(m rbac.Membership) rbac.AssignmentRequest {
	return rbac.AssignmentRequest{Role: m.Role, RoleType: m.RoleType, CompanyID: m.CompanyID}
}
