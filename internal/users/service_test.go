package users

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/rbac"
)

// memRepo keeps memberships in memory, keyed by user.
type memRepo struct {
	mu     sync.Mutex
	byUser map[string][]rbac.Membership
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{byUser: map[string][]rbac.Membership{}}
}

func (r *memRepo) seed(userID string, m rbac.Membership) rbac.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = fmt.Sprintf("m%d", r.nextID)
	r.byUser[userID] = append(r.byUser[userID], m)
	return m
}

func (r *memRepo) ListMemberships(ctx context.Context, userID string) ([]rbac.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rbac.Membership(nil), r.byUser[userID]...), nil
}

func (r *memRepo) UserMemberships(ctx context.Context, userID string) ([]rbac.Membership, error) {
	all, _ := r.ListMemberships(ctx, userID)
	out := make([]rbac.Membership, 0, len(all))
	for _, m := range all {
		if m.Validate() == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) GetMembership(ctx context.Context, userID, membershipID string) (rbac.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byUser[userID] {
		if m.ID == membershipID {
			return m, nil
		}
	}
	return rbac.Membership{}, httpx.ErrNotFound
}

func (r *memRepo) CreateMembership(ctx context.Context, userID string, m rbac.Membership) (rbac.Membership, error) {
	r.mu.Lock()
	for _, existing := range r.byUser[userID] {
		if existing.Role == m.Role && existing.CompanyID == m.CompanyID {
			r.mu.Unlock()
			return rbac.Membership{}, httpx.ErrDuplicate
		}
	}
	r.mu.Unlock()
	return r.seed(userID, m), nil
}

func (r *memRepo) UpdateMembership(ctx context.Context, userID, membershipID string, fn func(rbac.Membership) (rbac.Membership, error)) (rbac.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.byUser[userID] {
		if m.ID != membershipID {
			continue
		}
		next, err := fn(m)
		if err != nil {
			return rbac.Membership{}, err
		}
		r.byUser[userID][i] = next
		return next, nil
	}
	return rbac.Membership{}, httpx.ErrNotFound
}

func TestServiceGrant(t *testing.T) {
	svc := NewService(newMemRepo())

	m, err := svc.Grant(context.Background(), "u2", RoleGrant{Role: "Manager", RoleType: "company", CompanyID: " C1 "})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, rbac.RoleManager, m.Role)
	assert.Equal(t, "C1", m.CompanyID)
	assert.True(t, m.IsActive)

	_, err = svc.Grant(context.Background(), "u2", RoleGrant{Role: "manager", RoleType: "company", CompanyID: "C1"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestServiceGrantRejectsInconsistentMembership(t *testing.T) {
	svc := NewService(newMemRepo())
	cases := map[string]RoleGrant{
		"global with company":  {Role: "super_admin", RoleType: "global", CompanyID: "C1"},
		"company without one":  {Role: "viewer", RoleType: "company"},
		"role type mismatch":   {Role: "viewer", RoleType: "global"},
		"unknown role":         {Role: "owner", RoleType: "company", CompanyID: "C1"},
		"missing user context": {Role: "viewer", RoleType: "company", CompanyID: "C1"},
	}
	for name, grant := range cases {
		t.Run(name, func(t *testing.T) {
			userID := "u2"
			if name == "missing user context" {
				userID = " "
			}
			_, err := svc.Grant(context.Background(), userID, grant)
			assert.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

func TestServiceUpdateMergesPartialChanges(t *testing.T) {
	repo := newMemRepo()
	seeded := repo.seed("u2", rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	svc := NewService(repo)

	inactive := false
	m, err := svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{IsActive: &inactive}, nil)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleViewer, m.Role)
	assert.False(t, m.IsActive)

	role := "employee"
	m, err = svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{Role: &role}, nil)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEmployee, m.Role)
	assert.Equal(t, "C1", m.CompanyID)
	assert.False(t, m.IsActive)
}

func TestServiceUpdateRejectsBrokenInvariants(t *testing.T) {
	repo := newMemRepo()
	seeded := repo.seed("u2", rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	svc := NewService(repo)

	empty := ""
	_, err := svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{CompanyID: &empty}, nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	global := "global"
	_, err = svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{RoleType: &global}, nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	stored, err := svc.Membership(context.Background(), "u2", seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded, stored)
}

func TestServiceMembershipsNeverNil(t *testing.T) {
	out, err := NewService(newMemRepo()).Memberships(context.Background(), "nobody", "nobody")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRoleUpdateTouchesRole(t *testing.T) {
	role, company := "viewer", "C2"
	active := true
	assert.False(t, RoleUpdate{}.TouchesRole())
	assert.False(t, RoleUpdate{IsActive: &active}.TouchesRole())
	assert.True(t, RoleUpdate{Role: &role}.TouchesRole())
	assert.True(t, RoleUpdate{CompanyID: &company}.TouchesRole())
}

func TestServiceUpdateRejectsMembershipChangedSinceAuthorized(t *testing.T) {
	repo := newMemRepo()
	seeded := repo.seed("u2", rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	svc := NewService(repo)

	authorized := AssignmentOf(seeded)
	admin := "admin_empresa"
	_, err := svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{Role: &admin}, nil)
	require.NoError(t, err)

	role := "employee"
	_, err = svc.Update(context.Background(), "u2", seeded.ID, RoleUpdate{Role: &role}, &authorized)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	stored, err := svc.Membership(context.Background(), "u2", seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdminEmpresa, stored.Role)
}

func TestServiceMembershipsScopedToCaller(t *testing.T) {
	repo := newMemRepo()
	repo.seed("u2", rbac.Membership{Role: rbac.RoleAdminEmpresa, RoleType: rbac.RoleTypeCompany, CompanyID: "C1", IsActive: true})
	repo.seed("u2", rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C2", IsActive: true})
	repo.seed("peer", rbac.Membership{Role: rbac.RoleEmployee, RoleType: rbac.RoleTypeCompany, CompanyID: "C2", IsActive: true})
	repo.seed("stranger", rbac.Membership{Role: rbac.RoleViewer, RoleType: rbac.RoleTypeCompany, CompanyID: "C9", IsActive: true})
	repo.seed("root", rbac.Membership{Role: rbac.RoleSuperAdmin, RoleType: rbac.RoleTypeGlobal, IsActive: true})
	svc := NewService(repo)
	ctx := context.Background()

	own, err := svc.Memberships(ctx, "u2", "u2")
	require.NoError(t, err)
	assert.Len(t, own, 2)

	common, err := svc.Memberships(ctx, "peer", "u2")
	require.NoError(t, err)
	require.Len(t, common, 1)
	assert.Equal(t, "C2", common[0].CompanyID)

	hidden, err := svc.Memberships(ctx, "stranger", "u2")
	require.NoError(t, err)
	assert.NotNil(t, hidden)
	assert.Empty(t, hidden)

	all, err := svc.Memberships(ctx, "root", "u2")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Memberships(ctx, " ", "u2")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}
