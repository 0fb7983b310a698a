package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// FeatureKey names a subscription plan module.
type FeatureKey string

const (
	FeatureInventoryManagement FeatureKey = "inventoryManagement"
	FeatureAccounting          FeatureKey = "accounting"
	FeatureHRM                 FeatureKey = "hrm"
	FeatureCRM                 FeatureKey = "crm"
	FeatureProjectManagement   FeatureKey = "projectManagement"
	FeatureReports             FeatureKey = "reports"
	FeatureAPIAccess           FeatureKey = "apiAccess"
	FeatureAdvancedAnalytics   FeatureKey = "advancedAnalytics"
	FeatureAuditLog            FeatureKey = "auditLog"
	FeatureCustomIntegrations  FeatureKey = "customIntegrations"
	FeatureMultiCurrency       FeatureKey = "multiCurrency"
	FeatureCustomBranding      FeatureKey = "customBranding"
	FeaturePrioritySupport     FeatureKey = "prioritySupport"
	FeatureDedicatedAccount    FeatureKey = "dedicatedAccount"
)

// featureKeys is the full feature universe in display order.
var featureKeys = []FeatureKey{
	FeatureInventoryManagement,
	FeatureAccounting,
	FeatureHRM,
	FeatureCRM,
	FeatureProjectManagement,
	FeatureReports,
	FeatureAPIAccess,
	FeatureAdvancedAnalytics,
	FeatureAuditLog,
	FeatureCustomIntegrations,
	FeatureMultiCurrency,
	FeatureCustomBranding,
	FeaturePrioritySupport,
	FeatureDedicatedAccount,
}

// Permission tokens referenced outside the catalog tables.
const (
	PermCompanyEdit  = "company.edit"
	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"
	PermUsersView    = "users.view"
	PermUsersCreate  = "users.create"
	PermUsersEdit    = "users.edit"
	PermUsersDelete  = "users.delete"
)

// basePermissions are granted to every company role whatever the plan.
var basePermissions = NewPermissionSet(
	PermCompanyEdit,
	PermSettingsView,
	PermSettingsEdit,
	PermUsersView,
	PermUsersCreate,
	PermUsersEdit,
	PermUsersDelete,
)

// minimalPermissions is what a company without any plan data receives.
var minimalPermissions = NewPermissionSet(PermSettingsView, PermCompanyEdit)

// featurePermissions maps each module to the permissions it unlocks.
// Cosmetic and support features unlock nothing.
var featurePermissions = map[FeatureKey]PermissionSet{
	FeatureInventoryManagement: NewPermissionSet(
		"inventory.view", "inventory.create", "inventory.edit", "inventory.delete", "inventory.transfer",
		"products.view", "products.create", "products.edit", "products.delete",
		"categories.view", "categories.create", "categories.edit", "categories.delete",
		"warehouses.view", "warehouses.create", "warehouses.edit", "warehouses.delete",
	),
	FeatureAccounting: NewPermissionSet(
		"accounting.view", "accounting.create", "accounting.edit", "accounting.delete", "accounting.close",
	),
	FeatureHRM: NewPermissionSet(
		"hrm.view", "hrm.create", "hrm.edit", "hrm.delete", "hrm.payroll",
	),
	FeatureCRM: NewPermissionSet(
		"crm.view", "crm.create", "crm.edit", "crm.delete",
	),
	FeatureProjectManagement: NewPermissionSet(
		"projects.view", "projects.create", "projects.edit", "projects.delete",
	),
	FeatureReports: NewPermissionSet(
		"reports.view", "reports.export",
	),
	FeatureAPIAccess: NewPermissionSet(
		"api.access", "api.keys",
	),
	FeatureAdvancedAnalytics: NewPermissionSet(
		"analytics.view", "analytics.export",
	),
	FeatureAuditLog: NewPermissionSet(
		"audit.view", "audit.export",
	),
	FeatureCustomIntegrations: NewPermissionSet(
		"integrations.view", "integrations.manage",
	),
	FeatureMultiCurrency:    NewPermissionSet(),
	FeatureCustomBranding:   NewPermissionSet(),
	FeaturePrioritySupport:  NewPermissionSet(),
	FeatureDedicatedAccount: NewPermissionSet(),
}

// FeatureKeys returns the feature universe in display order.
func FeatureKeys() []FeatureKey {
	out := make([]FeatureKey, len(featureKeys))
	copy(out, featureKeys)
	return out
}

// ParseFeatureKey maps a raw transport value onto a known FeatureKey.
func ParseFeatureKey(raw string) (FeatureKey, error) {
	key := FeatureKey(strings.TrimSpace(raw))
	if _, ok := featurePermissions[key]; !ok {
		return "", fmt.Errorf("unknown feature %q", raw)
	}
	return key, nil
}

// BasePermissions returns a copy of the plan-independent permission set.
func BasePermissions() PermissionSet {
	return basePermissions.Clone()
}

// FeaturePermissions returns a copy of the permissions a feature unlocks.
func FeaturePermissions(key FeatureKey) PermissionSet {
	return featurePermissions[key].Clone()
}

// FeatureSet holds the enabled flag of each plan feature.
type FeatureSet map[FeatureKey]bool

// DecodeFeatureSet converts loosely typed feature data, such as a decoded
// JSON document, into a FeatureSet. Keys outside the catalog are kept and
// contribute nothing; non-boolean values are rejected.
func DecodeFeatureSet(raw map[string]any) (FeatureSet, error) {
	features := make(FeatureSet, len(raw))
	invalid := make([]string, 0)
	for key, value := range raw {
		enabled, ok := value.(bool)
		if !ok {
			invalid = append(invalid, key)
			continue
		}
		features[FeatureKey(key)] = enabled
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		verr := &ValidationError{Fields: make(map[string]string, len(invalid))}
		for _, key := range invalid {
			verr.Fields["features."+key] = "must be a boolean"
		}
		return nil, verr
	}
	return features, nil
}

// Enabled reports whether a feature is switched on. Missing keys are off.
func (f FeatureSet) Enabled(key FeatureKey) bool {
	return f[key]
}

// PermissionsForFeatures returns the base set plus the permissions of every
// enabled feature.
func PermissionsForFeatures(features FeatureSet) PermissionSet {
	out := basePermissions.Clone()
	for _, key := range featureKeys {
		if !features.Enabled(key) {
			continue
		}
		for p := range featurePermissions[key] {
			out[p] = struct{}{}
		}
	}
	return out
}

// ActiveModules lists enabled features in display order.
func ActiveModules(features FeatureSet) []FeatureKey {
	out := make([]FeatureKey, 0, len(featureKeys))
	for _, key := range featureKeys {
		if features.Enabled(key) {
			out = append(out, key)
		}
	}
	return out
}

// RestrictedModules lists disabled features in display order. Together with
// ActiveModules it covers the whole feature universe.
func RestrictedModules(features FeatureSet) []FeatureKey {
	out := make([]FeatureKey, 0, len(featureKeys))
	for _, key := range featureKeys {
		if !features.Enabled(key) {
			out = append(out, key)
		}
	}
	return out
}
