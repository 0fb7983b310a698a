package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("owner")
	assert.Error(t, err)

	_, err = ParseCompanyRole("super_admin")
	assert.Error(t, err)

	roleType, err := ParseRoleType("GLOBAL")
	require.NoError(t, err)
	assert.Equal(t, RoleTypeGlobal, roleType)

	_, err = ParseRoleType("tenant")
	assert.Error(t, err)
}

func TestMembershipValidate(t *testing.T) {
	cases := []struct {
		name  string
		m     Membership
		field string
	}{
		{name: "company ok", m: Membership{Role: RoleViewer, RoleType: RoleTypeCompany, CompanyID: "C1"}},
		{name: "global ok", m: Membership{Role: RoleSuperAdmin, RoleType: RoleTypeGlobal}},
		{name: "unknown role", m: Membership{Role: "owner", RoleType: RoleTypeCompany, CompanyID: "C1"}, field: "role"},
		{name: "super admin scoped to company", m: Membership{Role: RoleSuperAdmin, RoleType: RoleTypeCompany, CompanyID: "C1"}, field: "roleType"},
		{name: "company role typed global", m: Membership{Role: RoleManager, RoleType: RoleTypeGlobal}, field: "roleType"},
		{name: "global with company", m: Membership{Role: RoleSuperAdmin, RoleType: RoleTypeGlobal, CompanyID: "C1"}, field: "companyId"},
		{name: "company without company", m: Membership{Role: RoleEmployee, RoleType: RoleTypeCompany, CompanyID: " "}, field: "companyId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.m.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestIsActiveSuperAdmin(t *testing.T) {
	assert.True(t, Membership{Role: RoleSuperAdmin, RoleType: RoleTypeGlobal, IsActive: true}.IsActiveSuperAdmin())
	assert.False(t, Membership{Role: RoleSuperAdmin, RoleType: RoleTypeGlobal}.IsActiveSuperAdmin())
	assert.False(t, Membership{Role: RoleAdminEmpresa, RoleType: RoleTypeCompany, CompanyID: "C1", IsActive: true}.IsActiveSuperAdmin())
}
