package rbac

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a membership may carry.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleAdminEmpresa Role = "admin_empresa"
	RoleManager      Role = "manager"
	RoleEmployee     Role = "employee"
	RoleViewer       Role = "viewer"
)

// RoleType scopes a role either to the whole platform or to one company.
type RoleType string

const (
	RoleTypeGlobal  RoleType = "global"
	RoleTypeCompany RoleType = "company"
)

// companyRoles is ordered from the highest to the lowest privilege.
var companyRoles = []Role{RoleAdminEmpresa, RoleManager, RoleEmployee, RoleViewer}

// CompanyRoles returns the company-scoped roles, highest privilege first.
func CompanyRoles() []Role {
	out := make([]Role, len(companyRoles))
	copy(out, companyRoles)
	return out
}

// ParseRole maps a raw transport value onto a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	case RoleAdminEmpresa:
		return RoleAdminEmpresa, nil
	case RoleManager:
		return RoleManager, nil
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// ParseCompanyRole accepts only company-scoped roles.
func ParseCompanyRole(raw string) (Role, error) {
	role, err := ParseRole(raw)
	if err != nil {
		return "", err
	}
	if !role.IsCompanyRole() {
		return "", fmt.Errorf("role %q is not a company role", role)
	}
	return role, nil
}

// ParseRoleType maps a raw transport value onto a RoleType.
func ParseRoleType(raw string) (RoleType, error) {
	switch RoleType(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleTypeGlobal:
		return RoleTypeGlobal, nil
	case RoleTypeCompany:
		return RoleTypeCompany, nil
	}
	return "", fmt.Errorf("unknown role type %q", raw)
}

// IsCompanyRole reports whether the role is scoped to a company.
func (r Role) IsCompanyRole() bool {
	switch r {
	case RoleAdminEmpresa, RoleManager, RoleEmployee, RoleViewer:
		return true
	}
	return false
}

// Type returns the scope the role belongs to, or "" for unknown roles.
func (r Role) Type() RoleType {
	switch {
	case r == RoleSuperAdmin:
		return RoleTypeGlobal
	case r.IsCompanyRole():
		return RoleTypeCompany
	}
	return ""
}

func (r Role) String() string { return string(r) }

// Membership is one role a user holds, optionally bound to a company.
type Membership struct {
	ID        string   `json:"id,omitempty"`
	Role      Role     `json:"role"`
	RoleType  RoleType `json:"roleType"`
	CompanyID string   `json:"companyId,omitempty"`
	IsActive  bool     `json:"isActive"`
}

// Validate checks the scope invariants of a membership.
func (m Membership) Validate() error {
	if m.Role.Type() == "" {
		return newValidationError("role", fmt.Sprintf("unknown role %q", m.Role))
	}
	if m.Role.Type() != m.RoleType {
		return newValidationError("roleType", fmt.Sprintf("role %s requires role type %s", m.Role, m.Role.Type()))
	}
	switch m.RoleType {
	case RoleTypeGlobal:
		if m.CompanyID != "" {
			return newValidationError("companyId", "global memberships cannot be bound to a company")
		}
	case RoleTypeCompany:
		if strings.TrimSpace(m.CompanyID) == "" {
			return newValidationError("companyId", "company memberships require a company")
		}
	}
	return nil
}

// IsActiveSuperAdmin reports whether the membership grants the global bypass.
func (m Membership) IsActiveSuperAdmin() bool {
	return m.IsActive && m.Role == RoleSuperAdmin && m.RoleType == RoleTypeGlobal
}
