package rbac

import (
	"errors"
	"sort"
	"strings"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
)

// ErrPlanStoreUnavailable marks plan lookups that failed for infrastructure
// reasons. Plan collaborators wrap it so resolution can tell "no plan" apart
// from "could not check".
var ErrPlanStoreUnavailable = errors.New("rbac: plan store unavailable")

// ValidationError reports malformed or missing input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match httpx.ErrValidation.
func (e *ValidationError) Unwrap() error { return httpx.ErrValidation }

// ProblemExtensions exposes field errors in problem responses.
func (e *ValidationError) ProblemExtensions() map[string]any {
	return map[string]any{"fields": e.Fields}
}

// DeniedError is an assignment denial surfaced to API callers. It only names
// the acting user's own role and the attempted target.
type DeniedError struct {
	Reason        string
	CurrentRole   Role
	AttemptedRole Role
	CompanyID     string
}

func (e *DeniedError) Error() string { return e.Reason }

// Unwrap lets errors.Is match httpx.ErrForbidden.
func (e *DeniedError) Unwrap() error { return httpx.ErrForbidden }

// ProblemExtensions exposes the audit fields of the denial.
func (e *DeniedError) ProblemExtensions() map[string]any {
	ext := map[string]any{"attemptedRole": e.AttemptedRole}
	if e.CurrentRole != "" {
		ext["currentRole"] = e.CurrentRole
	}
	if e.CompanyID != "" {
		ext["companyId"] = e.CompanyID
	}
	return ext
}
