package rbac

import (
	"context"
	"strings"
)

// ValidationResult reports which requested permissions fall outside the
// effective set.
type ValidationResult struct {
	Valid              bool     `json:"valid"`
	InvalidPermissions []string `json:"invalidPermissions"`
}

// Service exposes the read-only permission operations used by the HTTP
// layer and by server-side re-validation before a grant is persisted.
type Service struct {
	resolver *Resolver
}

// NewService constructs a Service over resolver.
func NewService(resolver *Resolver) *Service {
	return &Service{resolver: resolver}
}

// Resolver returns the underlying resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Calculate resolves the effective permissions of role in companyID.
func (s *Service) Calculate(ctx context.Context, role Role, companyID string) (Result, error) {
	return s.resolver.Resolve(ctx, role, companyID)
}

// Validate partitions requested into permissions inside and outside the
// effective set of role in companyID. Invalid entries are reported as sent,
// once each, in order of first occurrence.
func (s *Service) Validate(ctx context.Context, requested []string, role Role, companyID string) (ValidationResult, error) {
	result, err := s.resolver.Resolve(ctx, role, companyID)
	if err != nil {
		return ValidationResult{}, err
	}
	invalid := make([]string, 0)
	seen := make(map[string]struct{}, len(requested))
	for _, raw := range requested {
		perm := strings.TrimSpace(raw)
		if result.Permissions.Has(perm) {
			continue
		}
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		invalid = append(invalid, raw)
	}
	return ValidationResult{Valid: len(invalid) == 0, InvalidPermissions: invalid}, nil
}

// AvailableModules returns the modules enabled by the company's plan.
func (s *Service) AvailableModules(ctx context.Context, companyID string) ([]FeatureKey, error) {
	available, _, err := s.resolver.Modules(ctx, companyID)
	return available, err
}

// ModuleAvailable reports whether the company's plan enables module.
func (s *Service) ModuleAvailable(ctx context.Context, companyID string, module FeatureKey) (bool, error) {
	return s.resolver.ModuleAvailable(ctx, companyID, module)
}
