package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/rbac"
)

// RepositoryPort defines membership persistence.
type RepositoryPort interface {
	ListMemberships(ctx context.Context, userID string) ([]rbac.Membership, error)
	UserMemberships(ctx context.Context, userID string) ([]rbac.Membership, error)
	GetMembership(ctx context.Context, userID, membershipID string) (rbac.Membership, error)
	CreateMembership(ctx context.Context, userID string, m rbac.Membership) (rbac.Membership, error)
	UpdateMembership(ctx context.Context, userID, membershipID string, fn func(rbac.Membership) (rbac.Membership, error)) (rbac.Membership, error)
}

// Service handles membership business logic. Authorization of role changes
// happens before these methods run.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Memberships returns the memberships of userID that callerID may see. Users
// see all of their own; anyone else sees only the companies they share with
// the user, unless they are an active super_admin.
func (s *Service) Memberships(ctx context.Context, callerID, userID string) ([]rbac.Membership, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, httpx.ErrUnauthorized
	}
	out, err := s.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	if callerID == strings.TrimSpace(userID) {
		if out == nil {
			out = []rbac.Membership{}
		}
		return out, nil
	}
	caller, err := s.repo.UserMemberships(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return rbac.VisibleMemberships(caller, out), nil
}

// UserMemberships returns the valid memberships of the user, satisfying
// rbac.MembershipSource.
func (s *Service) UserMemberships(ctx context.Context, userID string) ([]rbac.Membership, error) {
	return s.repo.UserMemberships(ctx, userID)
}

// Membership loads one membership of the user.
func (s *Service) Membership(ctx context.Context, userID, membershipID string) (rbac.Membership, error) {
	if err := validateUserID(userID); err != nil {
		return rbac.Membership{}, err
	}
	return s.repo.GetMembership(ctx, userID, membershipID)
}

// Grant stores a new active membership for the user.
func (s *Service) Grant(ctx context.Context, userID string, grant RoleGrant) (rbac.Membership, error) {
	if err := validateUserID(userID); err != nil {
		return rbac.Membership{}, err
	}
	req, err := grant.Assignment()
	if err != nil {
		return rbac.Membership{}, err
	}
	m := rbac.Membership{Role: req.Role, RoleType: req.RoleType, CompanyID: req.CompanyID, IsActive: true}
	if err := m.Validate(); err != nil {
		return rbac.Membership{}, err
	}
	return s.repo.CreateMembership(ctx, userID, m)
}

// Update applies a partial change to a membership. The merged membership
// must satisfy the membership invariants. When authorized is set, the locked
// row must still match it, so a role change never lands on a membership that
// moved after it was authorized.
func (s *Service) Update(ctx context.Context, userID, membershipID string, upd RoleUpdate, authorized *rbac.AssignmentRequest) (rbac.Membership, error) {
	if err := validateUserID(userID); err != nil {
		return rbac.Membership{}, err
	}
	return s.repo.UpdateMembership(ctx, userID, membershipID, func(current rbac.Membership) (rbac.Membership, error) {
		if authorized != nil && AssignmentOf(current) != *authorized {
			return rbac.Membership{}, fmt.Errorf("%w: membership %s changed since it was authorized", httpx.ErrConflict, membershipID)
		}
		next, err := upd.Apply(current)
		if err != nil {
			return rbac.Membership{}, err
		}
		if err := next.Validate(); err != nil {
			return rbac.Membership{}, err
		}
		return next, nil
	})
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &rbac.ValidationError{Fields: map[string]string{"userId": "is required"}}
	}
	return nil
}
